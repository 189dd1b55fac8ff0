package wire

import (
	"bytes"
	"errors"
	"testing"
)

func TestWriteReadRoundTrip(t *testing.T) {
	cases := [][]byte{
		{},
		[]byte("hello"),
		bytes.Repeat([]byte{0xAB}, 70000),
	}
	for _, payload := range cases {
		var buf bytes.Buffer
		if err := Write(&buf, payload); err != nil {
			t.Fatalf("Write(%d bytes): %v", len(payload), err)
		}
		got, err := Read(&buf)
		if err != nil {
			t.Fatalf("Read after Write(%d bytes): %v", len(payload), err)
		}
		if !bytes.Equal(got, payload) {
			t.Fatalf("round-trip mismatch: got %d bytes, want %d", len(got), len(payload))
		}
	}
}

func TestHeartbeatIsHeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, nil); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if buf.Len() != headerSize {
		t.Fatalf("heartbeat frame is %d bytes, want %d", buf.Len(), headerSize)
	}
	payload, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read heartbeat: %v", err)
	}
	if len(payload) != 0 {
		t.Fatalf("heartbeat payload = %d bytes, want 0", len(payload))
	}
}

func TestReadRejectsBadComplement(t *testing.T) {
	header := []byte{0, 0, 0, 5, 0, 0, 0, 5} // complement of 5 is not 5
	buf := bytes.NewBuffer(header)
	_, err := Read(buf)
	var notPkg *ErrNotPackage
	if !errors.As(err, &notPkg) {
		t.Fatalf("Read(bad header) = %v, want *ErrNotPackage", err)
	}
}

func TestReadShortHeaderIsMissingHead(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0, 0, 0})
	_, err := Read(buf)
	var missing *ErrMissingHead
	if !errors.As(err, &missing) {
		t.Fatalf("Read(short header) = %v, want *ErrMissingHead", err)
	}
	if missing.PeerClosed() {
		t.Fatalf("3-byte partial header should not report PeerClosed")
	}
}

func TestReadClosedStreamIsOther(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	_, err := Read(buf)
	var other *ErrOther
	if !errors.As(err, &other) {
		t.Fatalf("Read(empty stream) = %v, want *ErrOther", err)
	}
}

func TestReadShortBodyIsTransmissionInterrupted(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, []byte("hello world")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	truncated := bytes.NewBuffer(buf.Bytes()[:headerSize+3])
	_, err := Read(truncated)
	var interrupted *ErrTransmissionInterrupted
	if !errors.As(err, &interrupted) {
		t.Fatalf("Read(truncated body) = %v, want *ErrTransmissionInterrupted", err)
	}
	if interrupted.Want != len("hello world") || len(interrupted.Partial) != 3 {
		t.Fatalf("unexpected interrupted state: %+v", interrupted)
	}
}
