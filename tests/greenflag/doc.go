// Package greenflag contains tests that prove the system correctly performs
// allowed operations: owner-scoped CRUD, filtering, caching and identity
// resolution on their happy paths.
package greenflag
