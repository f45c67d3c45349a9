// Package canon resolves local references inside API description documents
// (Swagger 2.0, OpenAPI 3.x, AsyncAPI 2.x, JSON Schema), assigns deterministic
// ids to the entities found in them, and rewrites schema sub-documents of any
// of those dialects into one canonical JSON Schema draft-07 form.
//
// All state lives in a Context opened over one parsed document:
//
//	doc := ... // *yaml.Node
//	ctx := canon.NewContext(doc, canon.DefaultOptions())
//	defer ctx.Close()
//
//	ctx.EnterService("Petstore")
//	s := ctx.TranslateSchemaPair("Pet", ctx.ResolvePath("#/components/schemas/Pet"))
//
// Schemas are converted once per node: shared and cyclic subschemas map to
// the same *Schema, and cyclic input produces cyclic output.
package canon
