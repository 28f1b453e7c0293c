package serversdat

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Tnze/go-mc/nbt"

	"serverlist/pkg/log"
	"serverlist/pkg/models"
	"serverlist/pkg/store"
)

const (
	backupSuffix = "_old"
	tempPattern  = "servers*.dat.tmp"
	filePerm     = 0644
	dirPerm      = 0750

	tagServers               = "servers"
	tagName                  = "name"
	tagIP                    = "ip"
	tagIcon                  = "icon"
	tagAcceptTextures        = "acceptTextures"
	tagAcceptedCodeOfConduct = "acceptedCodeOfConduct"
	tagHidden                = "hidden"
)

var (
	errNoServersList = errors.New("servers list not found in NBT tree")
	gzipMagic        = []byte{0x1f, 0x8b}
)

// Store implements store.Store on top of the game's servers.dat NBT layout.
type Store struct{}

// New creates a servers.dat store.
func New() *Store {
	return &Store{}
}

// Load reads and decodes the data file at path.
func (s *Store) Load(path string) (*models.Collection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Debug().Str("path", path).Msg("No server list on disk")
			return models.NewCollection(), nil
		}
		return nil, &store.IOError{Path: path, Op: "read", Err: err}
	}

	root, err := decode(data)
	if err != nil {
		return nil, &store.ParseError{Path: path, Err: err}
	}

	list, ok := root[tagServers]
	if !ok {
		return nil, &store.ParseError{Path: path, Err: errNoServersList}
	}

	compounds, err := asCompoundList(list)
	if err != nil {
		return nil, &store.ParseError{Path: path, Err: err}
	}

	collection := models.NewCollection()
	for _, tag := range compounds {
		entry := parseEntry(tag)
		if asBool(tag[tagHidden]) {
			collection.Hidden = append(collection.Hidden, entry)
		} else {
			collection.Servers = append(collection.Servers, entry)
		}
	}

	log.Debug().
		Str("path", path).
		Int("servers", len(collection.Servers)).
		Int("hidden", len(collection.Hidden)).
		Msg("Loaded server list")

	return collection, nil
}

// Save encodes the collection into a temporary file next to path and swaps
// it in. The previous file is kept as servers.dat_old.
func (s *Store) Save(path string, collection *models.Collection) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return &store.IOError{Path: path, Op: "write", Err: err}
	}

	tmp, err := os.CreateTemp(dir, tempPattern)
	if err != nil {
		return &store.IOError{Path: path, Op: "write", Err: err}
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			if removeErr := os.Remove(tmpPath); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
				log.Warn().Err(removeErr).Str("temp_file", tmpPath).Msg("Failed to remove temporary server list")
			}
		}
	}()

	writer := bufio.NewWriter(tmp)
	if err := nbt.NewEncoder(writer).Encode(encodeRoot(collection), ""); err != nil {
		_ = tmp.Close()
		return &store.IOError{Path: path, Op: "encode", Err: err}
	}
	if err := writer.Flush(); err != nil {
		_ = tmp.Close()
		return &store.IOError{Path: path, Op: "write", Err: err}
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return &store.IOError{Path: path, Op: "sync", Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &store.IOError{Path: path, Op: "write", Err: err}
	}
	if err := os.Chmod(tmpPath, filePerm); err != nil {
		return &store.IOError{Path: path, Op: "write", Err: err}
	}

	if err := backup(path); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Failed to keep previous server list")
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return &store.IOError{Path: path, Op: "replace", Err: err}
	}
	committed = true

	log.Debug().
		Str("path", path).
		Int("servers", len(collection.Servers)).
		Msg("Saved server list")
	return nil
}

// backup copies the current data file to its _old sibling.
func backup(path string) error {
	src, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	defer func() { _ = src.Close() }()

	dst, err := os.OpenFile(path+backupSuffix, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, filePerm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return err
	}
	return dst.Close()
}

func decode(data []byte) (map[string]any, error) {
	var reader io.Reader = bytes.NewReader(data)
	if bytes.HasPrefix(data, gzipMagic) {
		gz, err := gzip.NewReader(reader)
		if err != nil {
			return nil, err
		}
		defer func() { _ = gz.Close() }()
		reader = gz
	}

	var root map[string]any
	if _, err := nbt.NewDecoder(reader).Decode(&root); err != nil {
		return nil, fmt.Errorf("decode NBT: %w", err)
	}
	return root, nil
}

func asCompoundList(v any) ([]map[string]any, error) {
	switch list := v.(type) {
	case []map[string]any:
		return list, nil
	case []any:
		out := make([]map[string]any, 0, len(list))
		for _, item := range list {
			if tag, ok := item.(map[string]any); ok {
				out = append(out, tag)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("servers tag has type %T, want list of compounds", v)
	}
}

func parseEntry(tag map[string]any) models.ServerEntry {
	name, _ := tag[tagName].(string)
	ip, _ := tag[tagIP].(string)

	entry := models.ServerEntry{
		ID:          models.NewID(),
		Name:        name,
		Address:     ip,
		TexturePack: models.TexturePackPrompt,
		Status:      models.Status{Kind: models.StatusUnloaded},
	}

	if encoded, ok := tag[tagIcon].(string); ok && encoded != "" {
		icon, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			log.Warn().Err(err).Str("server", name).Msg("Ignoring unreadable server icon")
		} else {
			entry.Icon = icon
		}
	}

	if v, ok := tag[tagAcceptTextures]; ok {
		if asBool(v) {
			entry.TexturePack = models.TexturePackEnabled
		} else {
			entry.TexturePack = models.TexturePackDisabled
		}
	}

	if v, ok := tag[tagAcceptedCodeOfConduct]; ok {
		accepted := asBool(v)
		entry.AcceptedCodeOfConduct = &accepted
	}

	return entry
}

func encodeRoot(collection *models.Collection) map[string]any {
	servers := make([]map[string]any, 0, len(collection.Servers)+len(collection.Hidden))
	for _, entry := range collection.Servers {
		servers = append(servers, encodeEntry(entry, false))
	}
	for _, entry := range collection.Hidden {
		servers = append(servers, encodeEntry(entry, true))
	}
	return map[string]any{tagServers: servers}
}

func encodeEntry(entry models.ServerEntry, hidden bool) map[string]any {
	tag := map[string]any{
		tagName:   entry.Name,
		tagIP:     entry.Address,
		tagHidden: boolByte(hidden),
	}
	if len(entry.Icon) > 0 {
		tag[tagIcon] = base64.StdEncoding.EncodeToString(entry.Icon)
	}
	switch entry.TexturePack {
	case models.TexturePackEnabled:
		tag[tagAcceptTextures] = boolByte(true)
	case models.TexturePackDisabled:
		tag[tagAcceptTextures] = boolByte(false)
	}
	if entry.AcceptedCodeOfConduct != nil && *entry.AcceptedCodeOfConduct {
		tag[tagAcceptedCodeOfConduct] = boolByte(true)
	}
	return tag
}

func boolByte(b bool) int8 {
	if b {
		return 1
	}
	return 0
}

// asBool reads a byte-like NBT value as a boolean.
func asBool(v any) bool {
	switch n := v.(type) {
	case bool:
		return n
	case int8:
		return n != 0
	case uint8:
		return n != 0
	case int16:
		return n != 0
	case int32:
		return n != 0
	case int64:
		return n != 0
	case int:
		return n != 0
	default:
		return false
	}
}

var _ store.Store = (*Store)(nil)
