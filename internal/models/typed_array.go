package models

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// TypedArray is plotly's binary array encoding: base64 data plus a numpy dtype
type TypedArray struct {
	DType string `json:"dtype"`
	BData string `json:"bdata"`
	Shape string `json:"shape,omitempty"`
}

type dtypeInfo struct {
	kind  byte // 'f', 'i' or 'u'
	size  int
	order binary.ByteOrder
}

var dtypeAliases = map[string]string{
	"float64": "f8", "float32": "f4",
	"int8": "i1", "int16": "i2", "int32": "i4", "int64": "i8",
	"uint8": "u1", "uint16": "u2", "uint32": "u4", "uint64": "u8",
	"u1c": "u1",
}

// parseDType understands numpy short codes (with optional byte order prefix)
// and the long names plotly emits for some arrays.
func parseDType(dtype string) (dtypeInfo, error) {
	code := strings.TrimSpace(dtype)
	var order binary.ByteOrder = binary.LittleEndian
	if code != "" {
		switch code[0] {
		case '>':
			order = binary.BigEndian
			code = code[1:]
		case '<', '|', '=':
			code = code[1:]
		}
	}
	if alias, ok := dtypeAliases[strings.ToLower(code)]; ok {
		code = alias
	}
	if len(code) != 2 {
		return dtypeInfo{}, fmt.Errorf("unsupported dtype %q", dtype)
	}

	info := dtypeInfo{kind: code[0], order: order}
	switch code[1] {
	case '1':
		info.size = 1
	case '2':
		info.size = 2
	case '4':
		info.size = 4
	case '8':
		info.size = 8
	default:
		return dtypeInfo{}, fmt.Errorf("unsupported dtype %q", dtype)
	}
	switch {
	case info.kind == 'f' && (info.size == 4 || info.size == 8):
	case info.kind == 'i' || info.kind == 'u':
	default:
		return dtypeInfo{}, fmt.Errorf("unsupported dtype %q", dtype)
	}
	return info, nil
}

// Values decodes the array into float64 values
func (a TypedArray) Values() ([]float64, error) {
	info, err := parseDType(a.DType)
	if err != nil {
		return nil, err
	}
	raw, err := base64.StdEncoding.DecodeString(a.BData)
	if err != nil {
		return nil, fmt.Errorf("failed to decode bdata: %w", err)
	}
	if len(raw)%info.size != 0 {
		return nil, fmt.Errorf("bdata length %d is not a multiple of %d for dtype %q", len(raw), info.size, a.DType)
	}

	values := make([]float64, 0, len(raw)/info.size)
	for off := 0; off < len(raw); off += info.size {
		values = append(values, decodeElement(info, raw[off:off+info.size]))
	}
	return values, nil
}

func decodeElement(info dtypeInfo, b []byte) float64 {
	switch info.size {
	case 1:
		if info.kind == 'i' {
			return float64(int8(b[0]))
		}
		return float64(b[0])
	case 2:
		v := info.order.Uint16(b)
		if info.kind == 'i' {
			return float64(int16(v))
		}
		return float64(v)
	case 4:
		v := info.order.Uint32(b)
		switch info.kind {
		case 'f':
			return float64(math.Float32frombits(v))
		case 'i':
			return float64(int32(v))
		}
		return float64(v)
	default:
		v := info.order.Uint64(b)
		switch info.kind {
		case 'f':
			return math.Float64frombits(v)
		case 'i':
			return float64(int64(v))
		}
		return float64(v)
	}
}

// AsTypedArray reports whether v (a decoded JSON value) is a plotly typed array
func AsTypedArray(v any) (TypedArray, bool) {
	obj, ok := v.(map[string]any)
	if !ok {
		return TypedArray{}, false
	}
	bdata, ok := obj["bdata"].(string)
	if !ok {
		return TypedArray{}, false
	}
	dtype, _ := obj["dtype"].(string)
	shape, _ := obj["shape"].(string)
	return TypedArray{DType: dtype, BData: bdata, Shape: shape}, true
}

// DecodeTypedArray decodes v when it is a plotly typed array. The bool result
// is false when v is some other JSON value, which callers use as-is.
func DecodeTypedArray(v any) ([]float64, bool, error) {
	arr, ok := AsTypedArray(v)
	if !ok {
		return nil, false, nil
	}
	values, err := arr.Values()
	if err != nil {
		return nil, true, err
	}
	return values, true, nil
}
