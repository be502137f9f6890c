// Package portable implements the extension surface of the container: the
// lifecycle events, the dispatcher delivering them and the extension
// registry.
//
// Events are short lived. Each one is active only while the dispatcher
// delivers it to listeners. Calling a mutator on an event after its delivery
// panics with an errors.IllegalStateError coded INACTIVE_EVENT.
//
// Extensions never fail a deployment directly. They record problems with
// AddDefinitionError and the deployment aborts when the error stack is next
// inspected.
package portable
