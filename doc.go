// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package lcm1602 controls HD44780 compatible character LCDs behind the
// common LCM1602/LCM2004 I²C backpack.
//
// The backpack is a PCF8574 8-bit I²C expander whose outputs fan out to the
// LCD's 4-bit data bus, the RS/RW/E control lines and a backlight
// transistor. The driver speaks the HD44780 4-bit protocol through that one
// expander register: every byte becomes two nibble presentations, each
// strobed in with an enable pulse, with the backlight bit OR'd into every
// write so it never glitches.
//
// The expander is write-only from the driver's point of view; there is no
// busy-flag polling and no acknowledgement from the LCD controller. All
// protocol timing is satisfied with fixed datasheet-derived sleeps, and
// transport errors surface as plain errors with no retry, since a retry in
// the middle of a nibble pair would desynchronize the controller.
//
// Call New to configure the device and Begin to run the initialization
// handshake, then write text:
//
//	bus, _ := i2creg.Open("")
//	dev, err := lcm1602.New(bus, &lcm1602.DefaultOpts)
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := dev.Begin(); err != nil {
//		log.Fatal(err)
//	}
//	dev.SetCursor(0, 0)
//	dev.WriteString("Hello")
//
// The [lcdsim] subpackage provides a wire-level simulator that implements
// i2c.Bus, and [glyph] builds 5x8 CGRAM patterns from images and fonts.
//
// # Datasheet
//
// https://www.sparkfun.com/datasheets/LCD/HD44780.pdf
//
// https://www.ti.com/lit/ds/symlink/pcf8574.pdf
//
// A good description of the backpack wiring:
//
// https://www.handsontec.com/dataspecs/I2C_2004_LCD.pdf
package lcm1602
