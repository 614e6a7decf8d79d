// Package library manages named template library sources. Sources are
// ordered roots persisted in libraries.yaml under the config directory;
// template resolution walks them in declared order and the first source
// carrying a manifest wins.
package library
