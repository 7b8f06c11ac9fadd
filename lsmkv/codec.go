package lsmkv

// BytesCodec stores values as their raw bytes, unmodified.
type BytesCodec struct{}

func (BytesCodec) Encode(v []byte) []byte { return v }

func (BytesCodec) Decode(b []byte) ([]byte, bool) { return b, true }

// StringCodec stores string values as UTF-8 bytes.
type StringCodec struct{}

func (StringCodec) Encode(v string) []byte { return []byte(v) }

func (StringCodec) Decode(b []byte) (string, bool) { return string(b), true }
