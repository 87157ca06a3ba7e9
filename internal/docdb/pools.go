package docdb

import "sync"

// jsonScratchPool supplies the scratch buffer EncodeJSONDocuments
// grows into, adapted from the teacher's pools.go (valueBytesPool) down
// to the one buffer this engine actually allocates repeatedly: JSON
// scratch space when serializing a whole export snapshot.
var jsonScratchPool = sync.Pool{
	New: func() any {
		b := make([]byte, 0, 4096)
		return &b
	},
}

func getJSONScratch() []byte {
	return (*jsonScratchPool.Get().(*[]byte))[:0]
}

func putJSONScratch(b []byte) {
	jsonScratchPool.Put(&b)
}

// EncodeJSONDocuments appends the JSON array encoding of items to a
// pooled scratch buffer and returns a copy sized to fit, used by the
// export path to avoid re-walking AppendJSON's allocator per call.
func EncodeJSONDocuments(items []ExportItem) []byte {
	buf := getJSONScratch()
	defer putJSONScratch(buf)

	buf = append(buf, '[')
	for i, it := range items {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = append(buf, `{"key":`...)
		buf = appendJSONString(buf, it.Key)
		buf = append(buf, `,"value":`...)
		buf = AppendJSON(buf, it.Value)
		buf = append(buf, '}')
	}
	buf = append(buf, ']')

	out := make([]byte, len(buf))
	copy(out, buf)
	return out
}
