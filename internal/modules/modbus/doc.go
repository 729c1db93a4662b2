// Package modbus exposes Modbus-TCP relay boards and I/O modules as
// channels. Each channel is one device (address + slave id); its values are
// the coils, discrete inputs, holding registers and input registers named in
// configuration.
//
// Values are ordered by kind and, within a kind, by declaration:
// coils, then discrete inputs, then holding registers, then input registers.
package modbus
