package outbox

import (
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protowire"
)

type State uint8

const (
	StateNew State = iota
	StateSent
	StateAcked
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateSent:
		return "SENT"
	case StateAcked:
		return "ACKED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Record is one engine event waiting to be published. Seq is the key;
// it is not stored in the value.
type Record struct {
	Seq         uint64
	EventID     uuid.UUID
	Instrument  string
	Kind        uint8 // wire message type of Payload
	Payload     []byte
	State       State
	Retries     uint32
	LastAttempt int64 // unix nanos
}

const (
	fieldState protowire.Number = iota + 1
	fieldRetries
	fieldLastAttempt
	fieldKind
	fieldEventID
	fieldInstrument
	fieldPayload
)

var errCorruptRecord = errors.New("outbox: corrupt record")

// marshal encodes r in protobuf wire format so the value stays readable
// by any protobuf decoder with the matching field numbers.
func (r *Record) marshal() []byte {
	b := make([]byte, 0, 48+len(r.Instrument)+len(r.Payload))
	b = protowire.AppendTag(b, fieldState, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(r.State))
	b = protowire.AppendTag(b, fieldRetries, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(r.Retries))
	b = protowire.AppendTag(b, fieldLastAttempt, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(r.LastAttempt))
	b = protowire.AppendTag(b, fieldKind, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(r.Kind))
	b = protowire.AppendTag(b, fieldEventID, protowire.BytesType)
	b = protowire.AppendBytes(b, r.EventID[:])
	b = protowire.AppendTag(b, fieldInstrument, protowire.BytesType)
	b = protowire.AppendString(b, r.Instrument)
	b = protowire.AppendTag(b, fieldPayload, protowire.BytesType)
	b = protowire.AppendBytes(b, r.Payload)
	return b
}

func (r *Record) unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return errors.Wrap(protowire.ParseError(n), "outbox: tag")
		}
		b = b[n:]

		switch {
		case typ == protowire.VarintType && num <= fieldKind:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return errors.Wrap(protowire.ParseError(n), "outbox: varint")
			}
			b = b[n:]
			switch num {
			case fieldState:
				r.State = State(v)
			case fieldRetries:
				r.Retries = uint32(v)
			case fieldLastAttempt:
				r.LastAttempt = protowire.DecodeZigZag(v)
			case fieldKind:
				r.Kind = uint8(v)
			}
		case typ == protowire.BytesType && num >= fieldEventID && num <= fieldPayload:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return errors.Wrap(protowire.ParseError(n), "outbox: bytes")
			}
			b = b[n:]
			switch num {
			case fieldEventID:
				id, err := uuid.FromBytes(v)
				if err != nil {
					return errors.Wrap(errCorruptRecord, err.Error())
				}
				r.EventID = id
			case fieldInstrument:
				r.Instrument = string(v)
			case fieldPayload:
				r.Payload = append([]byte(nil), v...)
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return errors.Wrap(protowire.ParseError(n), "outbox: skip field")
			}
			b = b[n:]
		}
	}
	return nil
}
