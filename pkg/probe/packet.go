package probe

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	pk "github.com/Tnze/go-mc/net/packet"
)

const (
	// Status responses carry a favicon, so allow far more than a packet
	// normally needs but still refuse absurd lengths.
	maxPacketSize = 1 << 21
	// maxFrameSize adds room for the length prefix.
	maxFrameSize = maxPacketSize + 5

	// The status state never negotiates compression.
	noCompression = -1
)

var (
	errPacketTooBig  = errors.New("packet too big")
	errBadStringSize = errors.New("string length out of range")
)

func handshakePacket(protocol int32, host string, port uint16, nextState int32) pk.Packet {
	return pk.Marshal(
		handshakePacketID,
		pk.VarInt(protocol),
		pk.String(host),
		pk.UnsignedShort(port),
		pk.VarInt(nextState),
	)
}

func statusRequestPacket() pk.Packet {
	return pk.Marshal(statusRequestPacketID)
}

func pingPacket(token int64) pk.Packet {
	return pk.Marshal(pingPacketID, pk.Long(token))
}

// writePackets frames every packet into one buffer and sends it with a
// single write.
func writePackets(w io.Writer, packets ...pk.Packet) error {
	var buf bytes.Buffer
	for i := range packets {
		if err := packets[i].Pack(&buf, noCompression); err != nil {
			return err
		}
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// readPacket reads one length-prefixed frame, refusing frames past
// maxPacketSize.
func readPacket(r *bufio.Reader) (pk.Packet, error) {
	var p pk.Packet
	limited := &io.LimitedReader{R: r, N: maxFrameSize}
	if err := p.UnPack(limited, noCompression); err != nil {
		if limited.N <= 0 {
			return p, fmt.Errorf("%w: more than %d bytes", errPacketTooBig, maxPacketSize)
		}
		return p, err
	}
	return p, nil
}

// readString decodes a packet that holds a single string. The declared
// length is checked against the payload before decoding.
func readString(p pk.Packet) (string, error) {
	rd := bytes.NewReader(p.Data)
	var n pk.VarInt
	if _, err := n.ReadFrom(rd); err != nil {
		return "", err
	}
	if n < 0 || int(n) > rd.Len() {
		return "", fmt.Errorf("%w: %d", errBadStringSize, n)
	}

	var s pk.String
	if err := p.Scan(&s); err != nil {
		return "", err
	}
	return string(s), nil
}
