// Package manifest handles loading, parsing, and validation of template
// manifests. A template is one installable plugin (a database, AI,
// blockchain, or caching integration) described by a template.json file:
// its npm package requirements, environment variables, file mapping into
// the target project, and documentation fragments. Manifests are validated
// against an embedded JSON Schema and returned as immutable records cached
// per (sdk, template) pair.
package manifest
