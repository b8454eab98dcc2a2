// Package wire converts DNS messages between their stream (TCP) wire form and
// the domain model. Every message on the stream is preceded by a 2-byte
// big-endian length; the body is header, one question, the answers, and
// whatever bytes remain, carried as an opaque span.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/haukened/rr-relay/internal/dns/common/log"
	"github.com/haukened/rr-relay/internal/dns/domain"
)

// PrefixSize is the size of the stream framing prefix.
const PrefixSize = 2

var (
	ErrShortBuffer     = errors.New("buffer too short")
	ErrShortRead       = errors.New("stream closed before message was complete")
	ErrQuestionCount   = errors.New("message must carry exactly one question")
	ErrCompressedName  = errors.New("compressed question names are not supported")
	ErrMessageTooLarge = errors.New("message exceeds 65535 bytes")
)

// Codec reads and writes framed messages on a byte stream.
type Codec interface {
	ReadMessage(r io.Reader) (*domain.Message, error)
	WriteMessage(w io.Writer, msg *domain.Message) error
}

// streamCodec implements Codec for DNS over TCP.
type streamCodec struct {
	logger log.Logger
}

// NewStreamCodec returns a Codec that logs raw traffic at debug level.
func NewStreamCodec(logger log.Logger) Codec {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &streamCodec{logger: logger}
}

// ReadMessage reads the length prefix, then exactly that many bytes, and
// decodes them. A stream that ends early yields ErrShortRead.
func (c *streamCodec) ReadMessage(r io.Reader) (*domain.Message, error) {
	var prefix [PrefixSize]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, readErr("length prefix", err)
	}
	size := binary.BigEndian.Uint16(prefix[:])

	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, readErr("message body", err)
	}

	c.logger.Debug(map[string]any{
		"size": size,
		"raw":  fmt.Sprintf("%x", body),
	}, "Read DNS message")

	return Decode(size, body)
}

// WriteMessage encodes msg and writes it with a single Write call.
func (c *streamCodec) WriteMessage(w io.Writer, msg *domain.Message) error {
	data, err := Encode(msg)
	if err != nil {
		return err
	}
	c.logger.Debug(map[string]any{
		"id":   msg.Header.ID,
		"size": len(data),
		"raw":  fmt.Sprintf("%x", data),
	}, "Writing DNS message")

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write failed: %w", err)
	}
	return nil
}

func readErr(what string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %s", ErrShortRead, what)
	}
	return fmt.Errorf("read %s: %w", what, err)
}

// Decode parses a message body whose framing prefix has already been read.
// The header must announce exactly one question.
func Decode(prefix uint16, body []byte) (*domain.Message, error) {
	r := &reader{buf: body}
	msg := &domain.Message{Length: prefix}

	if err := decodeHeader(r, &msg.Header); err != nil {
		return nil, err
	}
	if msg.Header.QDCount != 1 {
		return nil, fmt.Errorf("%w: header announces %d", ErrQuestionCount, msg.Header.QDCount)
	}

	q, err := decodeQuestion(r)
	if err != nil {
		return nil, err
	}
	msg.Question = q

	if n := int(msg.Header.ANCount); n > 0 {
		msg.Answers = make([]domain.Answer, 0, n)
		for i := 0; i < n; i++ {
			ans, err := decodeAnswer(r)
			if err != nil {
				return nil, fmt.Errorf("answer %d: %w", i, err)
			}
			msg.Answers = append(msg.Answers, ans)
		}
	}

	msg.Additional = r.rest()
	return msg, nil
}

func decodeHeader(r *reader, h *domain.Header) error {
	if r.remaining() < domain.HeaderSize {
		return fmt.Errorf("%w: header needs %d bytes, have %d", ErrShortBuffer, domain.HeaderSize, r.remaining())
	}
	h.ID, _ = r.u16("id")
	h.Flags, _ = r.u16("flags")
	h.QDCount, _ = r.u16("qdcount")
	h.ANCount, _ = r.u16("ancount")
	h.NSCount, _ = r.u16("nscount")
	h.ARCount, _ = r.u16("arcount")
	return nil
}

// decodeQuestion reads label sections until the zero-length terminator,
// then qtype and qclass.
func decodeQuestion(r *reader) (domain.Question, error) {
	var q domain.Question
	for {
		n, err := r.u8("label length")
		if err != nil {
			return domain.Question{}, err
		}
		if n == 0 {
			q.Sections = append(q.Sections, domain.LabelSection{})
			break
		}
		if n&0xC0 == 0xC0 {
			return domain.Question{}, fmt.Errorf("%w: pointer at offset %d", ErrCompressedName, r.off-1)
		}
		label, err := r.bytes(int(n), "label")
		if err != nil {
			return domain.Question{}, err
		}
		q.Sections = append(q.Sections, domain.LabelSection{Length: n, Label: label})
	}

	qtype, err := r.u16("qtype")
	if err != nil {
		return domain.Question{}, err
	}
	qclass, err := r.u16("qclass")
	if err != nil {
		return domain.Question{}, err
	}
	q.Type = domain.RRType(qtype)
	q.Class = domain.RRClass(qclass)
	return q, nil
}

func decodeAnswer(r *reader) (domain.Answer, error) {
	var a domain.Answer
	var err error
	var typ, class uint16

	if a.Name, err = r.u16("answer name"); err != nil {
		return a, err
	}
	if typ, err = r.u16("answer type"); err != nil {
		return a, err
	}
	if class, err = r.u16("answer class"); err != nil {
		return a, err
	}
	if a.TTL, err = r.u32("answer ttl"); err != nil {
		return a, err
	}
	if a.RDLength, err = r.u16("rdlength"); err != nil {
		return a, err
	}
	if a.RData, err = r.bytes(int(a.RDLength), "rdata"); err != nil {
		return a, err
	}
	a.Type = domain.RRType(typ)
	a.Class = domain.RRClass(class)
	return a, nil
}

// Encode serializes msg in decode order, framing prefix first. The prefix is
// the length of the body actually written, which equals Length for any
// message produced by Decode. The terminator section contributes only its
// length byte.
func Encode(msg *domain.Message) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write([]byte{0, 0}) // prefix, patched below

	h := msg.Header
	_ = binary.Write(&buf, binary.BigEndian, h.ID)
	_ = binary.Write(&buf, binary.BigEndian, h.Flags)
	_ = binary.Write(&buf, binary.BigEndian, h.QDCount)
	_ = binary.Write(&buf, binary.BigEndian, h.ANCount)
	_ = binary.Write(&buf, binary.BigEndian, h.NSCount)
	_ = binary.Write(&buf, binary.BigEndian, h.ARCount)

	last := len(msg.Question.Sections) - 1
	for i, s := range msg.Question.Sections {
		buf.WriteByte(s.Length)
		if i < last {
			buf.Write(s.Label)
		}
	}
	_ = binary.Write(&buf, binary.BigEndian, uint16(msg.Question.Type))
	_ = binary.Write(&buf, binary.BigEndian, uint16(msg.Question.Class))

	for _, a := range msg.Answers {
		_ = binary.Write(&buf, binary.BigEndian, a.Name)
		_ = binary.Write(&buf, binary.BigEndian, uint16(a.Type))
		_ = binary.Write(&buf, binary.BigEndian, uint16(a.Class))
		_ = binary.Write(&buf, binary.BigEndian, a.TTL)
		_ = binary.Write(&buf, binary.BigEndian, a.RDLength)
		buf.Write(a.RData)
	}

	buf.Write(msg.Additional)

	out := buf.Bytes()
	bodyLen := len(out) - PrefixSize
	if bodyLen > math.MaxUint16 {
		return nil, fmt.Errorf("%w: %d", ErrMessageTooLarge, bodyLen)
	}
	binary.BigEndian.PutUint16(out[:PrefixSize], uint16(bodyLen))
	return out, nil
}

var _ Codec = (*streamCodec)(nil)
