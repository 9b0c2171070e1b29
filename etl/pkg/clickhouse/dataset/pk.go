package dataset

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"reflect"
	"strconv"
	"time"
)

// NaturalKey is the ordered list of values that identify a dimension entity.
type NaturalKey []any

// Hash returns a deterministic hex sha256 of the key. Each value is encoded as
// type:length:payload so that ("ab", "c") and ("a", "bc") differ.
func (k NaturalKey) Hash() string {
	var buf bytes.Buffer
	for _, val := range k {
		if val == nil {
			buf.WriteString("nil:0:")
			continue
		}

		var payload []byte
		switch v := val.(type) {
		case string:
			payload = []byte(v)
		case int, int8, int16, int32, int64:
			payload = binary.BigEndian.AppendUint64(nil, uint64(reflect.ValueOf(v).Int()))
		case uint, uint8, uint16, uint32, uint64:
			payload = binary.BigEndian.AppendUint64(nil, reflect.ValueOf(v).Uint())
		case bool:
			payload = []byte(strconv.FormatBool(v))
		case time.Time:
			payload = []byte(v.UTC().Format(time.RFC3339Nano))
		default:
			payload = []byte(fmt.Sprintf("%v", v))
		}

		buf.WriteString(reflect.TypeOf(val).String())
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(len(payload)))
		buf.WriteByte(':')
		buf.Write(payload)
	}

	hash := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(hash[:])
}
