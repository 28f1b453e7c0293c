package probe

import (
	"bufio"
	"bytes"
	"testing"

	pk "github.com/Tnze/go-mc/net/packet"
	"github.com/stretchr/testify/suite"
)

// PacketTestSuite tests the wire framing helpers
type PacketTestSuite struct {
	suite.Suite
}

func (s *PacketTestSuite) roundTrip(packets ...pk.Packet) *bufio.Reader {
	var buf bytes.Buffer
	s.Require().NoError(writePackets(&buf, packets...))
	return bufio.NewReader(&buf)
}

// TestHandshakeBytes tests the exact handshake encoding
func (s *PacketTestSuite) TestHandshakeBytes() {
	var buf bytes.Buffer
	s.Require().NoError(writePackets(&buf, handshakePacket(760, "a", 25565, statusIntent)))

	s.Equal([]byte{
		0x08,       // frame length
		0x00,       // packet id
		0xf8, 0x05, // protocol 760
		0x01, 'a', // host
		0x63, 0xdd, // port 25565, big endian
		0x01, // status intent
	}, buf.Bytes())
}

// TestHandshakeLayout tests the handshake field order
func (s *PacketTestSuite) TestHandshakeLayout() {
	p, err := readPacket(s.roundTrip(handshakePacket(760, "mc.example", 25565, statusIntent)))
	s.Require().NoError(err)
	s.Equal(handshakePacketID, p.ID)

	var (
		protocol pk.VarInt
		host     pk.String
		port     pk.UnsignedShort
		intent   pk.VarInt
	)
	s.Require().NoError(p.Scan(&protocol, &host, &port, &intent))
	s.Equal(pk.VarInt(760), protocol)
	s.Equal(pk.String("mc.example"), host)
	s.Equal(pk.UnsignedShort(25565), port)
	s.Equal(pk.VarInt(statusIntent), intent)
}

// TestBatchedWrite tests that handshake and status request share one write
func (s *PacketTestSuite) TestBatchedWrite() {
	r := s.roundTrip(handshakePacket(760, "mc.example", 25565, statusIntent), statusRequestPacket())

	first, err := readPacket(r)
	s.Require().NoError(err)
	s.Equal(handshakePacketID, first.ID)

	second, err := readPacket(r)
	s.Require().NoError(err)
	s.Equal(statusRequestPacketID, second.ID)
	s.Empty(second.Data)
}

// TestPingRoundTrip tests the ping payload encoding
func (s *PacketTestSuite) TestPingRoundTrip() {
	p, err := readPacket(s.roundTrip(pingPacket(1700000000123)))
	s.Require().NoError(err)
	s.Equal(pingPacketID, p.ID)

	var token pk.Long
	s.Require().NoError(p.Scan(&token))
	s.Equal(pk.Long(1700000000123), token)
}

// TestReadString tests a status response body
func (s *PacketTestSuite) TestReadString() {
	p, err := readPacket(s.roundTrip(pk.Marshal(statusResponsePacketID, pk.String(okStatus))))
	s.Require().NoError(err)

	raw, err := readString(p)
	s.Require().NoError(err)
	s.Equal(okStatus, raw)
}

// TestReadStringBounds tests a string length past the end of the packet
func (s *PacketTestSuite) TestReadStringBounds() {
	var body bytes.Buffer
	_, err := pk.VarInt(10).WriteTo(&body)
	s.Require().NoError(err)
	body.WriteString("abc")

	_, err = readString(pk.Packet{ID: statusResponsePacketID, Data: body.Bytes()})
	s.ErrorIs(err, errBadStringSize)

	body.Reset()
	_, err = pk.VarInt(-1).WriteTo(&body)
	s.Require().NoError(err)
	_, err = readString(pk.Packet{ID: statusResponsePacketID, Data: body.Bytes()})
	s.ErrorIs(err, errBadStringSize)
}

// TestReadPacketRejectsOversize tests the length guard
func (s *PacketTestSuite) TestReadPacketRejectsOversize() {
	var buf bytes.Buffer
	_, err := pk.VarInt(maxFrameSize).WriteTo(&buf)
	s.Require().NoError(err)
	buf.Write(make([]byte, maxFrameSize+16))

	_, err = readPacket(bufio.NewReader(&buf))
	s.ErrorIs(err, errPacketTooBig)
}

// TestReadPacketRejectsEmpty tests a zero length frame
func (s *PacketTestSuite) TestReadPacketRejectsEmpty() {
	_, err := readPacket(bufio.NewReader(bytes.NewReader([]byte{0x00})))
	s.Error(err)
}

// TestReadPacketTruncated tests a frame cut short by the peer
func (s *PacketTestSuite) TestReadPacketTruncated() {
	_, err := readPacket(bufio.NewReader(bytes.NewReader([]byte{0x05, 0x00, 0x01})))
	s.Error(err)
	s.NotErrorIs(err, errPacketTooBig)
}

// TestPacketSuite runs the packet test suite
func TestPacketSuite(t *testing.T) {
	suite.Run(t, new(PacketTestSuite))
}
