package partition

import (
	"encoding/binary"
	"encoding/json"
	"math"
	"strconv"

	domdoc "github.com/kailas-cloud/retriever/internal/domain/document"
)

// Hash field names. The double-underscore fields are reserved for the index
// schema; metadata lives in __meta as JSON and is returned verbatim, not
// indexed.
const (
	fieldContent   = "__content"
	fieldVector    = "__vector"
	fieldMeta      = "__meta"
	fieldType      = "type"
	fieldUpdatedAt = "updated_at"
	fieldVersion   = "version"
)

// buildHashFields serializes a document into the hash the FT index reads.
func buildHashFields(doc *domdoc.Document) map[string]string {
	fields := map[string]string{
		fieldContent:   doc.Content(),
		fieldVector:    string(vectorToBytes(doc.Vector())),
		fieldType:      doc.Type(),
		fieldUpdatedAt: strconv.FormatInt(doc.UpdatedAt().Unix(), 10),
		fieldVersion:   strconv.Itoa(doc.Version()),
	}

	if meta := doc.Metadata(); len(meta) > 0 {
		if b, err := json.Marshal(meta); err == nil {
			fields[fieldMeta] = string(b)
		}
	}

	return fields
}

// vectorToBytes converts a float32 vector to little-endian binary, the layout
// FT.SEARCH expects for FLOAT32 vector fields.
func vectorToBytes(vec []float32) []byte {
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}
