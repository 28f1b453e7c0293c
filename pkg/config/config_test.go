package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

// ConfigTestSuite tests configuration loading
type ConfigTestSuite struct {
	suite.Suite
	dir string
}

// SetupTest runs before each test
func (s *ConfigTestSuite) SetupTest() {
	s.dir = s.T().TempDir()
	for _, key := range []string{
		"LISTEN", "GAME_DIR", "HISTORY_DB", "PROBE_TIMEOUT", "PROBE_RATE",
		"PROBE_BURST", "PROTOCOL_VERSION", "LOG_LEVEL", "LOG_JSON",
	} {
		s.T().Setenv(envPrefix+key, "")
	}
}

func (s *ConfigTestSuite) writeConfig(body string) string {
	path := filepath.Join(s.dir, FileName)
	s.Require().NoError(os.WriteFile(path, []byte(body), 0600))
	return path
}

// TestDefaults tests that a missing implicit file yields the defaults
func (s *ConfigTestSuite) TestDefaults() {
	cfg, err := Load("")
	s.Require().NoError(err)
	s.Equal(Default(), cfg)
	s.Equal(":8090", cfg.Listen)
	s.Equal(15*time.Second, cfg.ProbeTimeout)
	s.Equal(760, cfg.ProtocolVersion)
	s.Equal(filepath.Join(".minecraft", "servers.dat"), cfg.DataPath())
}

// TestExplicitFileMissing tests that a named file must exist
func (s *ConfigTestSuite) TestExplicitFileMissing() {
	_, err := Load(filepath.Join(s.dir, "nope.yaml"))
	s.ErrorIs(err, os.ErrNotExist)
}

// TestFileValues tests reading every field from YAML
func (s *ConfigTestSuite) TestFileValues() {
	path := s.writeConfig(`
listen: 127.0.0.1:9000
game_dir: game
history_db: /var/lib/serverlist/history.db
probe_timeout: 3s
probe_rate: -1
probe_burst: 2
protocol_version: 767
log_level: debug
log_json: true
`)

	cfg, err := Load(path)
	s.Require().NoError(err)
	s.Equal("127.0.0.1:9000", cfg.Listen)
	s.Equal(filepath.Join(s.dir, "game"), cfg.GameDir)
	s.Equal("/var/lib/serverlist/history.db", cfg.HistoryDB)
	s.Equal(3*time.Second, cfg.ProbeTimeout)
	s.Equal(-1.0, cfg.ProbeRate)
	s.Equal(2, cfg.ProbeBurst)
	s.Equal(767, cfg.ProtocolVersion)
	s.Equal("debug", cfg.LogLevel)
	s.True(cfg.LogJSON)
}

// TestPartialFileKeepsDefaults tests merging over defaults
func (s *ConfigTestSuite) TestPartialFileKeepsDefaults() {
	path := s.writeConfig("log_level: warn\n")

	cfg, err := Load(path)
	s.Require().NoError(err)
	s.Equal("warn", cfg.LogLevel)
	s.Equal(":8090", cfg.Listen)
	s.Equal(".minecraft", cfg.GameDir)
}

// TestEnvOverridesFile tests environment precedence
func (s *ConfigTestSuite) TestEnvOverridesFile() {
	path := s.writeConfig("listen: :7000\nprobe_burst: 3\n")
	s.T().Setenv("SERVERLIST_LISTEN", ":7500")
	s.T().Setenv("SERVERLIST_PROBE_TIMEOUT", "750ms")
	s.T().Setenv("SERVERLIST_LOG_JSON", "yes")

	cfg, err := Load(path)
	s.Require().NoError(err)
	s.Equal(":7500", cfg.Listen)
	s.Equal(3, cfg.ProbeBurst)
	s.Equal(750*time.Millisecond, cfg.ProbeTimeout)
	s.True(cfg.LogJSON)
}

// TestBadEnv tests that malformed numbers are reported
func (s *ConfigTestSuite) TestBadEnv() {
	s.T().Setenv("SERVERLIST_PROBE_RATE", "fast")

	_, err := Load("")
	s.Require().Error(err)
	s.Contains(err.Error(), "SERVERLIST_PROBE_RATE")
}

// TestMalformedYAML tests parse errors
func (s *ConfigTestSuite) TestMalformedYAML() {
	path := s.writeConfig("listen: [unterminated\n")

	_, err := Load(path)
	s.Require().Error(err)
	s.Contains(err.Error(), "parse config")
}

// TestValidate tests rejected values
func (s *ConfigTestSuite) TestValidate() {
	cfg := Default()
	cfg.Listen = ""
	s.Error(cfg.Validate())

	cfg = Default()
	cfg.ProbeTimeout = -time.Second
	s.Error(cfg.Validate())

	cfg = Default()
	cfg.ProbeBurst = -1
	s.Error(cfg.Validate())

	s.NoError(Default().Validate())
}

// TestConfigSuite runs the config test suite
func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}
