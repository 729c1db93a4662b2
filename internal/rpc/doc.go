// Package rpc implements the path-addressed request router shared by the
// master and node daemons.
//
// Paths have the shape
//
//	io/<key>[/<channelId>[/<valueIndex>[/<payload>]]]
//
// On the master, a key naming a remote node forwards the rest of the path
// to that node's router and returns its body verbatim. Any other key is
// resolved against the local modules:
//
//	io/<module>/<channel>            value count
//	io/<module>/<channel>/<n>        read value n
//	io/<module>/<channel>/<n>/<p>    write payload p to value n, reply "OK"
//
// Every failure is classified with channel.Classify and mapped to an HTTP
// status by StatusFor; bodies are terse text.
package rpc
