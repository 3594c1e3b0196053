// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package lcm1602

// HD44780 instruction set. Each command byte is the command bit OR'd with the
// flags for the register it carries.
const (
	cmdClearDisplay   byte = 0x01
	cmdReturnHome     byte = 0x02
	cmdEntryModeSet   byte = 0x04
	cmdDisplayControl byte = 0x08
	cmdCursorShift    byte = 0x10
	cmdFunctionSet    byte = 0x20
	cmdSetCGRAMAddr   byte = 0x40
	cmdSetDDRAMAddr   byte = 0x80
)

// Function set register flags.
const (
	function8Bit  byte = 0x10
	function2Line byte = 0x08
	function5x10  byte = 0x04
)

// Display control register flags.
const (
	controlDisplayOn byte = 0x04
	controlCursorOn  byte = 0x02
	controlBlinkOn   byte = 0x01
)

// Entry mode register flags.
const (
	entryIncrement byte = 0x02
	entryShiftOn   byte = 0x01
)

// Cursor/display shift flags.
const (
	shiftDisplay byte = 0x08
	shiftRight   byte = 0x04
)

// PCF8574 output bit assignments on the backpack. The low nibble carries the
// control lines, the high nibble the LCD data lines D4-D7.
const (
	pinRegisterSelect byte = 0x01
	pinReadWrite      byte = 0x02
	pinEnable         byte = 0x04
	pinBacklight      byte = 0x08
)

// Row address offsets into DDRAM. Rows 2 and 3 continue rows 0 and 1 in the
// controller's interleaved RAM layout.
var rowOffsets = [4]byte{0x00, 0x40, 0x14, 0x54}

// functionFlags assembles the function set register from the display
// geometry. The interface is always 4 bits wide on this backpack. The 5x10
// font only exists on 1-line panels.
func functionFlags(rows int, font Font) byte {
	var f byte
	if rows > 1 {
		f |= function2Line
	}
	if font == Font5x10 && rows == 1 {
		f |= function5x10
	}
	return f
}

// controlFlags assembles the display control register.
func controlFlags(on, cursor, blink bool) byte {
	var f byte
	if on {
		f |= controlDisplayOn
	}
	if cursor {
		f |= controlCursorOn
	}
	if blink {
		f |= controlBlinkOn
	}
	return f
}

// entryModeFlags assembles the entry mode register.
func entryModeFlags(leftToRight, autoscroll bool) byte {
	var f byte
	if leftToRight {
		f |= entryIncrement
	}
	if autoscroll {
		f |= entryShiftOn
	}
	return f
}
