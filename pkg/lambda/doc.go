// Package lambda drives a Sutter Lambda 10-3 filter wheel controller.
package lambda

// The controller is driven over a serial port with single byte commands.
//
// On open, the host sends 0xFD and the controller answers with its
// configuration string terminated by CR, echoing 0xFD first. Only the
// configurations listed in Profiles are accepted.
//
// A move is one byte:
//
//	bit 7     wheel (0 = A, 1 = B)
//	bits 4-6  speed code, 0..7
//	bits 0-3  position, 0..9
//
// and is acknowledged with the same byte followed by CR once the wheel
// has settled. Position 0 is used as the shutter-closed position.
//
// Serial communication must be enabled on the front panel first
// (MODE 7 1 4 2).
