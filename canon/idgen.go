package canon

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"
)

// IDKind names the kind of entity an identifier is generated for. The kind is
// part of every hashed record, so kinds never collide.
type IDKind string

const (
	IDService        IDKind = "service"
	IDPath           IDKind = "path"
	IDOperation      IDKind = "operation"
	IDSchema         IDKind = "schema"
	IDMedia          IDKind = "media"
	IDRequestBody    IDKind = "request_body"
	IDResponse       IDKind = "response"
	IDHeader         IDKind = "header"
	IDQuery          IDKind = "query"
	IDCookie         IDKind = "cookie"
	IDPathParam      IDKind = "path_param"
	IDExample        IDKind = "example"
	IDSecurityScheme IDKind = "security_scheme"
	IDServer         IDKind = "server"
	IDCallback       IDKind = "callback"
	IDTag            IDKind = "tag"
)

// ParamIDKind maps a parameter location ("query", "header", "path",
// "cookie") to its IDKind.
func ParamIDKind(in string) (IDKind, bool) {
	switch in {
	case "query":
		return IDQuery, true
	case "header":
		return IDHeader, true
	case "path":
		return IDPathParam, true
	case "cookie":
		return IDCookie, true
	default:
		return "", false
	}
}

// Discriminators carries every field any kind may contribute to an id. Each
// kind reads only the fields of its shape.
type Discriminators struct {
	ParentID  string
	Key       string
	Path      string
	Method    string
	MediaType string
	KeyOrName string
	CodeOrKey string
	Produces  []string
	URL       string
	Name      string
}

type idField uint8

const (
	fieldParentID idField = iota + 1
	fieldKey
	fieldPath
	fieldMethod
	fieldMediaType
	fieldKeyOrName
	fieldCodeOrKey
	fieldProduces
	fieldURL
	fieldName
)

// idShapes fixes, per kind, which discriminators contribute and in which order.
var idShapes = map[IDKind][]idField{
	IDService:        {fieldKey},
	IDPath:           {fieldParentID, fieldPath},
	IDOperation:      {fieldParentID, fieldMethod, fieldPath},
	IDSchema:         {fieldParentID, fieldKey},
	IDMedia:          {fieldParentID, fieldMediaType},
	IDRequestBody:    {fieldParentID},
	IDResponse:       {fieldParentID, fieldCodeOrKey, fieldProduces},
	IDHeader:         {fieldParentID, fieldKeyOrName},
	IDQuery:          {fieldParentID, fieldKeyOrName},
	IDCookie:         {fieldParentID, fieldKeyOrName},
	IDPathParam:      {fieldParentID, fieldKeyOrName},
	IDExample:        {fieldParentID, fieldKeyOrName},
	IDSecurityScheme: {fieldParentID, fieldKey},
	IDServer:         {fieldParentID, fieldURL},
	IDCallback:       {fieldParentID, fieldKey},
	IDTag:            {fieldParentID, fieldName},
}

// adhocShape is used for kinds without a registered shape.
var adhocShape = []idField{fieldParentID, fieldKey}

func (d Discriminators) value(f idField) any {
	switch f {
	case fieldParentID:
		return d.ParentID
	case fieldKey:
		return d.Key
	case fieldPath:
		return d.Path
	case fieldMethod:
		return strings.ToLower(d.Method)
	case fieldMediaType:
		return d.MediaType
	case fieldKeyOrName:
		return d.KeyOrName
	case fieldCodeOrKey:
		return d.CodeOrKey
	case fieldProduces:
		if d.Produces == nil {
			return []string{}
		}
		return d.Produces
	case fieldURL:
		return d.URL
	case fieldName:
		return d.Name
	default:
		return nil
	}
}

// Hasher turns an encoded discriminator record into an identifier string.
type Hasher func(data []byte) string

// idEncMode is CBOR Core Deterministic Encoding: the same record always
// produces identical bytes.
var idEncMode cbor.EncMode

// idDomainKey separates canonical-id hashes from any other BLAKE3 use.
var idDomainKey = [32]byte{
	'o', 'a', 's', 'c', 'a', 'n', 'o', 'n', '.', 'c', 'a', 'n', 'o', 'n', 'i', 'c',
	'a', 'l', '-', 'i', 'd', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

var idHasher *blake3.Hasher

func init() {
	var err error
	idEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("canon: CBOR encoder initialization failed: " + err.Error())
	}
	idHasher, err = blake3.NewKeyed(idDomainKey[:])
	if err != nil {
		panic("canon: BLAKE3 keyed hasher initialization failed: " + err.Error())
	}
}

// Blake3Hasher is the default Hasher: keyed BLAKE3, hex of the first 16 bytes.
func Blake3Hasher(data []byte) string {
	h := idHasher.Clone()
	_, _ = h.Write(data)
	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:16])
}

// Generator produces Canonical IDs. It is pure given its Hasher.
type Generator struct {
	hash        Hasher
	skipHashing bool
}

// NewGenerator returns a Generator using h, or Blake3Hasher when h is nil.
func NewGenerator(h Hasher) *Generator {
	if h == nil {
		h = Blake3Hasher
	}
	return &Generator{hash: h}
}

// Generate returns the id of an entity of the given kind. Only the fields in
// the kind's shape contribute; ParentID is used verbatim (no scope defaulting).
func (g *Generator) Generate(kind IDKind, d Discriminators) string {
	shape, ok := idShapes[kind]
	if !ok {
		shape = adhocShape
	}
	record := make([]any, 0, len(shape)+1)
	record = append(record, string(kind))
	for _, f := range shape {
		record = append(record, d.value(f))
	}
	return g.hash(encodeRecord(record))
}

// GenerateRaw returns an id for an ad hoc template string.
func (g *Generator) GenerateRaw(template string) string {
	if g.skipHashing {
		return template
	}
	return g.hash([]byte(template))
}

func encodeRecord(record []any) []byte {
	data, err := idEncMode.Marshal(record)
	if err != nil {
		// Records hold only strings and string slices.
		return fmt.Appendf(nil, "%q", record)
	}
	return data
}
