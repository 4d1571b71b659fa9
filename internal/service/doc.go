// Package service wires config, transport, executor, session and the
// optional admin listener into one runnable process for either role.
package service
