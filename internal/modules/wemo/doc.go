// Package wemo exposes Belkin WeMo smart switches as channels.
//
// Each channel is one switch at a configured address. The switch is driven
// through its basicevent SOAP service:
//
//	POST http://<address>/upnp/control/basicevent1
//	SOAPACTION: "urn:Belkin:service:basicevent:1#GetBinaryState"
//
// Discovery is not performed; addresses come from configuration.
package wemo
