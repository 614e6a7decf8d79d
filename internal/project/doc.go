// Package project tracks which templates have been composed into a
// target tree. The record lives at .stacksmith/project.yaml and lets
// later runs add templates without reapplying what is already there.
package project
