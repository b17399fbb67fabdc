package mcpserver

// SigilContract describes how a note's title prefix selects the way its body
// is interpreted. The prefixes are part of the stored data format.
const SigilContract = `# jotter Sigil Contract

A note is one string. The first line is the title, the rest is the body.
The title's first two characters decide how the body is read.

| Title starts with | Kind       | Body is read as                                  |
|-------------------|------------|--------------------------------------------------|
| ` + "`# `" + `              | markdown   | Markdown (GFM); rendered to sanitized HTML        |
| ` + "`= `" + `              | list       | One item per line; blank lines are dropped       |
| ` + "`< `" + `              | structured | YAML (JSON is valid YAML); invalid input is {}    |
| anything else     | plain      | Plain text                                       |

## Rules

1. The prefix is the character followed by a single space: ` + "`#title`" + ` is plain.
2. Only the title is inspected. A ` + "`# `" + ` on a later line is just text.
3. Derived content is recomputed on every save; do not send it.
4. Tags are free-form strings. Duplicates and blanks are dropped.

## Examples

` + "```" + `
= Groceries
milk

eggs
` + "```" + `
→ list ` + "`[\"milk\", \"eggs\"]`" + `

` + "```" + `
< server
port: 8080
hosts: [a, b]
` + "```" + `
→ structured ` + "`{\"port\": 8080, \"hosts\": [\"a\", \"b\"]}`" + `
`
