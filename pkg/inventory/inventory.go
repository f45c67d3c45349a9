// Package inventory walks an API description through a canon.Context the way
// an entity translator does: it opens service, path and operation scopes,
// names every entity it meets and canonicalizes every schema-bearing field.
package inventory

import (
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/speakeasy-api/oascanon/canon"
)

// Entry is one named entity of a document.
type Entry struct {
	// Location is the local path of the entity in the source document.
	Location string
	Kind     canon.IDKind
	ID       string
	// Schema is the canonical schema carried by the entity, if any.
	Schema *canon.Schema
	// Kept holds the vendor keys selected by Options.KeepProperties.
	Kept *yaml.Node
}

var httpMethods = []string{"get", "put", "post", "delete", "options", "head", "patch", "trace"}

type collector struct {
	ctx     *canon.Context
	dialect canon.Dialect
	entries []Entry
}

// Collect lists the entities of the Context's document in document order.
func Collect(ctx *canon.Context) []Entry {
	root := ctx.Document()
	c := &collector{ctx: ctx, dialect: canon.DetectDialect(root)}

	title, _ := canon.StringValue(canon.Field(canon.Field(root, "info"), "title"))
	svc := ctx.EnterService(title)
	c.add(Entry{Location: "#", Kind: canon.IDService, ID: svc, Kept: ctx.KeptProperties(root)})

	switch c.dialect {
	case canon.DialectSwagger2:
		c.components("#/definitions", canon.Field(root, "definitions"))
		c.sharedParameters("#/parameters", canon.Field(root, "parameters"))
		c.securitySchemes("#/securityDefinitions", canon.Field(root, "securityDefinitions"))
		c.tags(root)
		c.paths(root)
	case canon.DialectOpenAPI30, canon.DialectOpenAPI31:
		components := canon.Field(root, "components")
		c.components("#/components/schemas", canon.Field(components, "schemas"))
		c.sharedParameters("#/components/parameters", canon.Field(components, "parameters"))
		c.securitySchemes("#/components/securitySchemes", canon.Field(components, "securitySchemes"))
		c.servers("#/servers", canon.Field(root, "servers"))
		c.tags(root)
		c.paths(root)
	case canon.DialectAsyncAPI2:
		components := canon.Field(root, "components")
		c.components("#/components/schemas", canon.Field(components, "schemas"))
		c.securitySchemes("#/components/securitySchemes", canon.Field(components, "securitySchemes"))
		c.channels(root)
	case canon.DialectJSONSchema:
		c.add(Entry{Location: "#", Kind: canon.IDSchema, Schema: ctx.TranslateSchemaPair(title, root)})
		c.components("#/definitions", canon.Field(root, "definitions"))
		c.components("#/$defs", canon.Field(root, "$defs"))
	default:
		ctx.Logger().Warnf("unrecognized document dialect, only the service is listed")
	}
	return c.entries
}

func (c *collector) add(e Entry) {
	if e.ID == "" && e.Schema != nil {
		e.ID = e.Schema.ID
	}
	c.entries = append(c.entries, e)
}

func (c *collector) components(base string, section *yaml.Node) {
	for _, e := range canon.Entries(section) {
		s := c.ctx.TranslateSchemaPair(e.Key, e.Value)
		if s == nil {
			continue
		}
		c.add(Entry{Location: join(base, e.Key), Kind: canon.IDSchema, Schema: s})
	}
}

func (c *collector) sharedParameters(base string, section *yaml.Node) {
	for _, e := range canon.Entries(section) {
		c.parameter(join(base, e.Key), e.Key, e.Value, "")
	}
}

func (c *collector) securitySchemes(base string, section *yaml.Node) {
	for _, e := range canon.Entries(section) {
		scheme := c.ctx.Resolve(e.Value)
		if !canon.IsSecurityScheme(scheme) {
			continue
		}
		id := c.ctx.Generate(canon.IDSecurityScheme, canon.Discriminators{Key: e.Key})
		c.add(Entry{
			Location: join(base, e.Key),
			Kind:     canon.IDSecurityScheme,
			ID:       id,
			Kept:     c.ctx.KeptProperties(scheme),
		})
		c.oauthFlows(id, scheme)
	}
}

// oauthFlows annotates a security scheme with the names of its usable
// OAuth flows. Swagger 2.0 schemes are a single flow themselves.
func (c *collector) oauthFlows(id string, scheme *yaml.Node) {
	var flows []string
	if c.dialect == canon.DialectSwagger2 {
		if name, ok := canon.StringValue(canon.Field(scheme, "flow")); ok && canon.IsOAuthFlow(scheme) {
			flows = append(flows, name)
		}
	}
	for _, f := range canon.Entries(canon.Field(scheme, "flows")) {
		if canon.IsOAuthFlow(c.ctx.Resolve(f.Value)) {
			flows = append(flows, f.Key)
		}
	}
	if len(flows) > 0 {
		c.ctx.Annotations().Set(id, "flows", flows)
	}
}

func (c *collector) servers(base string, list *yaml.Node) {
	for i, item := range canon.Items(list) {
		server := c.ctx.Resolve(item)
		if !canon.IsServer(server) {
			continue
		}
		url, _ := canon.StringValue(canon.Field(server, "url"))
		id := c.ctx.Generate(canon.IDServer, canon.Discriminators{URL: url})
		c.add(Entry{
			Location: join(base, itoa(i)),
			Kind:     canon.IDServer,
			ID:       id,
		})

		defaults := make(map[string]string)
		for _, v := range canon.Entries(canon.Field(server, "variables")) {
			variable := c.ctx.Resolve(v.Value)
			if !canon.IsServerVariable(variable) {
				c.ctx.Logger().Debugf("skipping server variable %s of %s without a default", v.Key, url)
				continue
			}
			defaults[v.Key] = canon.Field(variable, "default").Value
		}
		if len(defaults) > 0 {
			c.ctx.Annotations().Set(id, "variables", defaults)
		}
	}
}

func (c *collector) tags(root *yaml.Node) {
	for i, item := range canon.Items(canon.Field(root, "tags")) {
		name, ok := canon.StringValue(canon.Field(item, "name"))
		if !ok {
			continue
		}
		c.add(Entry{
			Location: join("#/tags", itoa(i)),
			Kind:     canon.IDTag,
			ID:       c.ctx.Generate(canon.IDTag, canon.Discriminators{Name: name}),
		})
	}
}

func (c *collector) paths(root *yaml.Node) {
	svc := c.ctx.IDs().Service
	for _, p := range canon.Entries(canon.Field(root, "paths")) {
		if strings.HasPrefix(p.Key, "x-") {
			continue
		}
		item := c.ctx.Resolve(p.Value)
		if canon.Classify(item) != canon.KindMapping {
			continue
		}
		base := join("#/paths", p.Key)
		c.add(Entry{Location: base, Kind: canon.IDPath, ID: c.ctx.EnterPath(p.Key)})
		shared := canon.Field(item, "parameters")
		sharedBase := join(base, "parameters")

		for _, method := range httpMethods {
			op := c.ctx.Resolve(canon.Field(item, method))
			if canon.Classify(op) != canon.KindMapping {
				continue
			}
			c.operation(join(base, method), method, p.Key, sharedBase, shared, op)
		}
	}
	c.ctx.SetIDs(canon.IDs{Service: svc})
	c.ctx.SetScope(canon.ScopeService)
}

func (c *collector) operation(base, method, path, sharedBase string, shared, op *yaml.Node) {
	opID := c.ctx.EnterOperation(method, path)
	c.add(Entry{Location: base, Kind: canon.IDOperation, ID: opID, Kept: c.ctx.KeptProperties(op)})

	for _, p := range mergeParameters(c.ctx, sharedBase, shared, join(base, "parameters"), canon.Field(op, "parameters")) {
		c.parameter(p.location, p.name, p.node, opID)
	}

	if body := c.ctx.Resolve(canon.Field(op, "requestBody")); canon.IsRequestBody(body) {
		bodyID := c.ctx.Generate(canon.IDRequestBody, canon.Discriminators{ParentID: opID})
		c.add(Entry{Location: join(base, "requestBody"), Kind: canon.IDRequestBody, ID: bodyID})
		c.content(join(base, "requestBody", "content"), bodyID, canon.Field(body, "content"))
	}

	produces := stringList(canon.Field(op, "produces"))
	if produces == nil {
		produces = stringList(canon.Field(c.ctx.Document(), "produces"))
	}
	for _, r := range canon.Entries(canon.Field(op, "responses")) {
		if strings.HasPrefix(r.Key, "x-") {
			continue
		}
		c.response(join(base, "responses", r.Key), opID, r.Key, produces, r.Value)
	}
}

func (c *collector) response(base, opID, code string, produces []string, node *yaml.Node) {
	resp := c.ctx.Resolve(node)
	if !canon.IsResponse(resp) {
		return
	}
	d := canon.Discriminators{ParentID: opID, CodeOrKey: code}
	if c.dialect == canon.DialectSwagger2 {
		d.Produces = produces
	}
	respID := c.ctx.Generate(canon.IDResponse, d)

	e := Entry{Location: base, Kind: canon.IDResponse, ID: respID}
	if schema := canon.Field(resp, "schema"); schema != nil {
		e.Schema = c.ctx.TranslateSchema(schema)
	}
	c.add(e)

	c.content(join(base, "content"), respID, canon.Field(resp, "content"))
	for _, h := range canon.Entries(canon.Field(resp, "headers")) {
		header := c.ctx.Resolve(h.Value)
		// Swagger 2.0 headers are schema-shaped; OAS3 headers wrap a schema.
		schemaNode := header
		if c.dialect == canon.DialectSwagger2 {
			if !canon.IsSchema(header) {
				continue
			}
		} else {
			if !canon.IsHeader(header) {
				continue
			}
			schemaNode = canon.Field(header, "schema")
		}
		c.add(Entry{
			Location: join(base, "headers", h.Key),
			Kind:     canon.IDHeader,
			ID:       c.ctx.Generate(canon.IDHeader, canon.Discriminators{ParentID: respID, KeyOrName: h.Key}),
			Schema:   c.ctx.TranslateSchema(schemaNode),
		})
	}
}

func (c *collector) content(base, parentID string, content *yaml.Node) {
	for _, m := range canon.Entries(content) {
		media := c.ctx.Resolve(m.Value)
		e := Entry{
			Location: join(base, m.Key),
			Kind:     canon.IDMedia,
			ID:       c.ctx.Generate(canon.IDMedia, canon.Discriminators{ParentID: parentID, MediaType: m.Key}),
		}
		if schema := canon.Field(media, "schema"); schema != nil {
			e.Schema = c.ctx.TranslateSchema(schema)
		}
		c.add(e)
	}
}

// parameter lists one parameter. Swagger 2.0 body parameters are request
// bodies; every other parameter is named by its location.
func (c *collector) parameter(location, key string, node *yaml.Node, parentID string) {
	param := c.ctx.Resolve(node)
	if !canon.IsBaseParameter(param) {
		return
	}
	in, _ := canon.StringValue(canon.Field(param, "in"))
	name, _ := canon.StringValue(canon.Field(param, "name"))
	if name == "" {
		name = key
	}

	if in == "body" {
		c.add(Entry{
			Location: location,
			Kind:     canon.IDRequestBody,
			ID:       c.ctx.Generate(canon.IDRequestBody, canon.Discriminators{ParentID: parentID}),
			Schema:   c.ctx.TranslateSchema(canon.Field(param, "schema")),
		})
		return
	}

	kind, ok := canon.ParamIDKind(in)
	if !ok {
		c.ctx.Logger().Debugf("skipping parameter %s with location %q", location, in)
		return
	}
	// Shared parameters are keyed by their Shared Key.
	keyOrName := name
	if c.ctx.Scope() == canon.ScopeService {
		if k := c.ctx.SharedKey(param); k != "" {
			keyOrName = k
		}
	}
	e := Entry{
		Location: location,
		Kind:     kind,
		ID:       c.ctx.Generate(kind, canon.Discriminators{ParentID: parentID, KeyOrName: keyOrName}),
		Kept:     c.ctx.KeptProperties(param),
	}
	if schema := canon.Field(param, "schema"); schema != nil {
		e.Schema = c.ctx.TranslateSchema(schema)
	}
	c.add(e)
}

func (c *collector) channels(root *yaml.Node) {
	svc := c.ctx.IDs().Service
	for _, ch := range canon.Entries(canon.Field(root, "channels")) {
		item := c.ctx.Resolve(ch.Value)
		if canon.Classify(item) != canon.KindMapping {
			continue
		}
		base := join("#/channels", ch.Key)
		c.add(Entry{Location: base, Kind: canon.IDPath, ID: c.ctx.EnterPath(ch.Key)})

		for _, action := range []string{"publish", "subscribe"} {
			op := c.ctx.Resolve(canon.Field(item, action))
			if canon.Classify(op) != canon.KindMapping {
				continue
			}
			opBase := join(base, action)
			opID := c.ctx.EnterOperation(action, ch.Key)
			c.add(Entry{Location: opBase, Kind: canon.IDOperation, ID: opID, Kept: c.ctx.KeptProperties(op)})

			message := c.ctx.Resolve(canon.Field(op, "message"))
			if alternatives := canon.Field(message, "oneOf"); alternatives != nil {
				for i, m := range canon.Items(alternatives) {
					parent := c.ctx.GenerateRaw(opID + "/message/" + itoa(i))
					c.message(join(opBase, "message", "oneOf", itoa(i)), parent, m)
				}
				continue
			}
			c.message(join(opBase, "message"), opID, message)
		}
	}
	c.ctx.SetIDs(canon.IDs{Service: svc})
	c.ctx.SetScope(canon.ScopeService)
}

func (c *collector) message(location, parentID string, node *yaml.Node) {
	message := c.ctx.Resolve(node)
	payload := canon.Field(message, "payload")
	if payload == nil {
		return
	}
	contentType, _ := canon.StringValue(canon.Field(message, "contentType"))
	if contentType == "" {
		contentType, _ = canon.StringValue(canon.Field(c.ctx.Document(), "defaultContentType"))
	}
	c.add(Entry{
		Location: join(location, "payload"),
		Kind:     canon.IDMedia,
		ID:       c.ctx.Generate(canon.IDMedia, canon.Discriminators{ParentID: parentID, MediaType: contentType}),
		Schema:   c.ctx.TranslateSchema(payload),
	})
}
