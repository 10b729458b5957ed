package tlv

import (
	"encoding/hex"
	"fmt"
	"reflect"
	"strings"

	"github.com/moov-io/bertlv"
)

// STRUCT MAPPING:
// EMV templates are described as Go structs whose fields carry a `tlv` tag
// holding the hex tag they receive:
//
//	type Template struct {
//	    AID      []byte        `tlv:"4F"`
//	    Entries  []Entry       `tlv:"61"`   // repeated tag -> slice of structs
//	    Extra    *Discretional `tlv:"BF0C"` // constructed tag -> nested struct
//	    Unknown  []bertlv.TLV  `tlv:",unknown"`
//	}
//
// A `fmt` tag ("ascii", "int") only affects WriteStructFields reports.
// Tags nobody claimed land in the `,unknown` field.

// Unmarshaler lets a field type decode its own value bytes.
type Unmarshaler interface {
	UnmarshalTLV(data []byte) error
}

// Unmarshal decodes data and maps the top-level objects into target.
func Unmarshal(data []byte, target interface{}) error {
	nodes, err := Decode(data)
	if err != nil {
		return err
	}
	return UnmarshalNodes(nodes, target)
}

// UnmarshalNodes maps already decoded nodes into target.
func UnmarshalNodes(nodes []Node, target interface{}) error {
	packets := make([]bertlv.TLV, 0, len(nodes))
	for _, n := range nodes {
		packets = append(packets, toPacket(n))
	}
	return UnmarshalFromPackets(packets, target)
}

// UnmarshalFromPackets maps bertlv packets into target, a non-nil struct pointer.
// A tag occurring several times fills a slice field one element per occurrence.
func UnmarshalFromPackets(packets []bertlv.TLV, target interface{}) error {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return fmt.Errorf("target must be a non-nil pointer")
	}
	v = v.Elem()
	t := v.Type()

	consumed := make(map[int]bool)

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		spec := t.Field(i).Tag.Get("tlv")

		if spec == "" || isUnknownSpec(spec, t.Field(i).Name) {
			continue
		}

		want := strings.ToUpper(strings.Split(spec, ",")[0])

		for idx, packet := range packets {
			if strings.ToUpper(packet.Tag) != want {
				continue
			}
			if err := assign(packet, field); err != nil {
				return fmt.Errorf("tag %s: %w", want, err)
			}
			consumed[idx] = true
		}
	}

	return collectUnknown(v, t, packets, consumed)
}

func isUnknownSpec(spec, name string) bool {
	return spec == ",unknown" || name == "Unknown"
}

// assign stores one packet into field, appending when field is a slice of structs.
func assign(packet bertlv.TLV, field reflect.Value) error {
	if field.Kind() == reflect.Slice && !isByteSlice(field) {
		elem := reflect.New(field.Type().Elem()).Elem()
		if err := decodeInto(packet, elem); err != nil {
			return err
		}
		field.Set(reflect.Append(field, elem))
		return nil
	}

	return decodeInto(packet, field)
}

func decodeInto(packet bertlv.TLV, field reflect.Value) error {
	if field.CanAddr() {
		if u, ok := field.Addr().Interface().(Unmarshaler); ok {
			return u.UnmarshalTLV(rawValue(packet))
		}
	}

	switch {
	case isByteSlice(field):
		field.SetBytes(rawValue(packet))
	case field.Kind() == reflect.String:
		field.SetString(hex.EncodeToString(packet.Value))
	case isStructOrPtrToStruct(field):
		dst := structTarget(field)
		if len(packet.TLVs) > 0 {
			return UnmarshalFromPackets(packet.TLVs, dst.Interface())
		}
		if len(packet.Value) == 0 {
			return nil
		}
		return Unmarshal(packet.Value, dst.Interface())
	}

	return nil
}

func collectUnknown(v reflect.Value, t reflect.Type, packets []bertlv.TLV, consumed map[int]bool) error {
	var unknown reflect.Value
	for i := 0; i < v.NumField(); i++ {
		if isUnknownSpec(t.Field(i).Tag.Get("tlv"), t.Field(i).Name) {
			unknown = v.Field(i)
			break
		}
	}
	if !unknown.IsValid() || !unknown.CanSet() {
		return nil
	}

	var leftovers []bertlv.TLV
	for idx, packet := range packets {
		if !consumed[idx] {
			leftovers = append(leftovers, packet)
		}
	}

	if len(leftovers) > 0 {
		unknown.Set(reflect.ValueOf(leftovers))
	}
	return nil
}

// rawValue returns the value bytes, re-encoding nested packets when present.
func rawValue(p bertlv.TLV) []byte {
	if len(p.TLVs) > 0 {
		if enc, err := bertlv.Encode(p.TLVs); err == nil {
			return enc
		}
	}
	return p.Value
}

func isByteSlice(v reflect.Value) bool {
	return v.Kind() == reflect.Slice && v.Type().Elem().Kind() == reflect.Uint8
}

func isStructOrPtrToStruct(v reflect.Value) bool {
	if v.Kind() == reflect.Struct {
		return true
	}
	return v.Kind() == reflect.Ptr && v.Type().Elem().Kind() == reflect.Struct
}

func structTarget(field reflect.Value) reflect.Value {
	if field.Kind() == reflect.Ptr {
		if field.IsNil() {
			field.Set(reflect.New(field.Type().Elem()))
		}
		return field
	}
	return field.Addr()
}
