// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package lcm1602

import (
	"fmt"
	"io"
	"strings"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/i2c"
)

const packageName = "lcm1602"

var ErrNotImplemented = fmt.Errorf("%s: %w", packageName, display.ErrNotImplemented)

// Font selects the character cell size. 5x10 characters only exist on 1-line
// panels; the flag is ignored for taller displays.
type Font byte

const (
	Font5x8  Font = 0x00
	Font5x10 Font = 0x04
)

// Opts holds the configuration for the display.
type Opts struct {
	// Addr is the 7-bit I²C address of the PCF8574 backpack, typically 0x27
	// or 0x3F. Zero selects the default.
	Addr uint16
	// Cols and Rows describe the panel geometry, e.g. 16x2 or 20x4.
	Cols int
	Rows int
	// Font selects the character cell size.
	Font Font
}

// DefaultOpts is for the common 16x2 panel at the factory default address.
var DefaultOpts = Opts{
	Addr: 0x27,
	Cols: 16,
	Rows: 2,
	Font: Font5x8,
}

func (o *Opts) i2cAddr() (uint16, error) {
	switch {
	case o.Addr == 0:
		// Default address.
		return DefaultOpts.Addr, nil
	case o.Addr >= 0x20 && o.Addr <= 0x27:
		// PCF8574.
		return o.Addr, nil
	case o.Addr >= 0x38 && o.Addr <= 0x3f:
		// PCF8574A.
		return o.Addr, nil
	default:
		return 0, fmt.Errorf("%s: address 0x%02x outside the PCF8574/PCF8574A range", packageName, o.Addr)
	}
}

// Timing from the HD44780 datasheet, figure 24. The controller offers no
// busy feedback through the write-only backpack, so every delay is a fixed,
// generous sleep.
const (
	delayPowerOn       = 50 * time.Millisecond
	delayExpanderReset = 1 * time.Second
	delayInitLong      = 4500 * time.Microsecond
	delayInitShort     = 150 * time.Microsecond
	delayEnablePulse   = 1 * time.Microsecond
	delayCommandSettle = 50 * time.Microsecond
	delayClearHome     = 2 * time.Millisecond
)

// Dev is a handle to an HD44780 character LCD behind a PCF8574 I²C backpack.
//
// The driver keeps shadow copies of the controller's function, control and
// entry mode registers plus the backpack's backlight bit; the hardware is
// write-only so this shadow state is the only record of what was sent. Dev
// performs no internal locking: the shadow state and the controller must be
// mutated atomically with respect to any other call, so share a Dev between
// goroutines only behind external mutual exclusion.
//
// Implements periph.io/x/conn/v3/display.TextDisplay and
// display.DisplayBacklight.
type Dev struct {
	d    *i2c.Dev
	cols int
	rows int
	font Font

	// Display control register.
	on     bool
	cursor bool
	blink  bool
	// Entry mode register.
	leftToRight bool
	autoscroll  bool
	// Backpack backlight bit, OR'd into every expander write.
	backlight bool
}

// New returns a driver for the display behind the given bus. It validates the
// options and sets the shadow defaults but performs no bus traffic; call
// Begin before any other operation.
//
// Use nil opts for a 16x2 panel at address 0x27.
func New(bus i2c.Bus, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	addr, err := opts.i2cAddr()
	if err != nil {
		return nil, err
	}
	if opts.Rows < 1 || opts.Rows > len(rowOffsets) {
		return nil, fmt.Errorf("%s: unsupported row count %d", packageName, opts.Rows)
	}
	if opts.Cols < 1 || opts.Cols > 40 {
		return nil, fmt.Errorf("%s: unsupported column count %d", packageName, opts.Cols)
	}
	d := &Dev{
		d:           &i2c.Dev{Bus: bus, Addr: addr},
		cols:        opts.Cols,
		rows:        opts.Rows,
		font:        opts.Font,
		on:          true,
		leftToRight: true,
		backlight:   true,
	}
	return d, nil
}

func wrap(err error) error {
	if err == nil || strings.HasPrefix(err.Error(), packageName) {
		return err
	}
	return fmt.Errorf("%s: %w", packageName, err)
}

// Begin performs the controller initialization handshake. It must be called
// once before any other operation, and may be called again to recover a
// controller left in an undefined state by an earlier transport failure.
//
// The sequence forces the controller into 4 bit mode regardless of its
// power-on state, then programs the function, control and entry mode
// registers from the configured geometry. It blocks for a little over a
// second of datasheet-mandated settle time.
func (d *Dev) Begin() error {
	// The controller needs at least 40ms after Vcc rises above 2.7V. The host
	// has usually been up much longer, but be generous.
	time.Sleep(delayPowerOn)

	// Reset the expander register to backlight-only and let everything
	// settle.
	if err := d.expanderWrite(0); err != nil {
		return wrap(err)
	}
	time.Sleep(delayExpanderReset)

	// Knock three times with "function set, 8 bit". This lands the
	// controller in a known 8 bit state whether it woke up in 8 bit mode, 4
	// bit mode, or half-way through a nibble pair.
	if err := d.write4bits(0x03 << 4); err != nil {
		return wrap(err)
	}
	time.Sleep(delayInitLong)
	if err := d.write4bits(0x03 << 4); err != nil {
		return wrap(err)
	}
	time.Sleep(delayInitLong)
	if err := d.write4bits(0x03 << 4); err != nil {
		return wrap(err)
	}
	time.Sleep(delayInitShort)
	// Now commit to the 4 bit interface.
	if err := d.write4bits(0x02 << 4); err != nil {
		return wrap(err)
	}

	if err := d.Command(cmdFunctionSet | functionFlags(d.rows, d.font)); err != nil {
		return err
	}
	if err := d.sendControl(); err != nil {
		return err
	}
	if err := d.Clear(); err != nil {
		return err
	}
	if err := d.sendEntryMode(); err != nil {
		return err
	}
	return d.Home()
}

// Clear blanks the display and moves the cursor to the first position.
func (d *Dev) Clear() error {
	if err := d.Command(cmdClearDisplay); err != nil {
		return err
	}
	// Clear rewrites all of DDRAM; the controller accepts nothing until it
	// finishes.
	time.Sleep(delayClearHome)
	return nil
}

// Home moves the cursor to the first position and undoes any display shift.
func (d *Dev) Home() error {
	if err := d.Command(cmdReturnHome); err != nil {
		return err
	}
	time.Sleep(delayClearHome)
	return nil
}

// Display turns the display output on or off. The content, backlight and all
// other state are preserved while the display is off.
func (d *Dev) Display(on bool) error {
	d.on = on
	return d.sendControl()
}

// Cursor sets the cursor mode. You can pass multiple arguments.
// Cursor(CursorOff, CursorUnderline)
func (d *Dev) Cursor(modes ...display.CursorMode) error {
	for _, mode := range modes {
		switch mode {
		case display.CursorOff:
			d.cursor = false
			d.blink = false
		case display.CursorUnderline:
			d.cursor = true
		case display.CursorBlink:
			d.blink = true
		case display.CursorBlock:
			d.cursor = true
			d.blink = true
		default:
			return fmt.Errorf("%s: unexpected cursor mode %d", packageName, mode)
		}
	}
	return d.sendControl()
}

// AutoScroll shifts the display on every character write so that new text
// appears at a fixed cursor position.
func (d *Dev) AutoScroll(enabled bool) error {
	d.autoscroll = enabled
	return d.sendEntryMode()
}

// LeftToRight makes text flow left to right from the cursor. This is the
// default.
func (d *Dev) LeftToRight() error {
	d.leftToRight = true
	return d.sendEntryMode()
}

// RightToLeft makes text flow right to left from the cursor.
func (d *Dev) RightToLeft() error {
	d.leftToRight = false
	return d.sendEntryMode()
}

// Scroll shifts the entire display contents one position left (Backward) or
// right (Forward) without touching DDRAM or the cursor.
func (d *Dev) Scroll(dir display.CursorDirection) error {
	val := cmdCursorShift | shiftDisplay
	switch dir {
	case display.Backward:
	case display.Forward:
		val |= shiftRight
	default:
		return ErrNotImplemented
	}
	return d.Command(val)
}

// Move moves the cursor one position forward or backward.
func (d *Dev) Move(dir display.CursorDirection) error {
	val := cmdCursorShift
	switch dir {
	case display.Backward:
	case display.Forward:
		val |= shiftRight
	default:
		return ErrNotImplemented
	}
	return d.Command(val)
}

// SetCursor moves the cursor to the zero-based column and row. A row past
// the configured geometry is clamped to the last row.
func (d *Dev) SetCursor(col, row byte) error {
	if int(row) >= d.rows {
		// We count rows starting at 0.
		row = byte(d.rows - 1)
	}
	return d.Command(cmdSetDDRAMAddr | (col + rowOffsets[row]))
}

// MoveTo moves the cursor to the 1-based row and column, returning an error
// if the position is outside the configured geometry.
func (d *Dev) MoveTo(row, col int) error {
	if row < d.MinRow() || row > d.rows || col < d.MinCol() || col > d.cols {
		return fmt.Errorf("%s: MoveTo(%d,%d) value out of range", packageName, row, col)
	}
	return d.SetCursor(byte(col-1), byte(row-1))
}

// CreateChar loads a 5x8 glyph into one of the controller's 8 CGRAM slots.
// location is masked to 0-7. The glyph is displayed by writing the byte
// equal to the slot number.
//
// The 8 pattern rows are written back to back; the controller auto-increments
// its CGRAM pointer between them, so no command may be interleaved.
func (d *Dev) CreateChar(location byte, pattern [8]byte) error {
	location &= 0x7
	if err := d.Command(cmdSetCGRAMAddr | location<<3); err != nil {
		return err
	}
	for _, row := range pattern {
		if err := d.writeData(row); err != nil {
			return err
		}
	}
	return nil
}

// Write sends characters to the display at the cursor position. It never
// performs a partial write of a byte: n counts fully transmitted characters.
//
// Bytes 0-7 display the corresponding CGRAM glyph.
func (d *Dev) Write(p []byte) (int, error) {
	for i, c := range p {
		if err := d.writeData(c); err != nil {
			return i, err
		}
	}
	return len(p), nil
}

// WriteString writes a string to the display at the cursor position.
func (d *Dev) WriteString(text string) (int, error) {
	return d.Write([]byte(text))
}

// WriteChar writes a single character to the display.
func (d *Dev) WriteChar(c byte) error {
	return d.writeData(c)
}

// Command sends a raw HD44780 command byte. The higher level methods cover
// the whole instruction set; this is the escape hatch for controller clones
// with extra instructions.
func (d *Dev) Command(cmd byte) error {
	return wrap(d.send(cmd, 0))
}

// Backlight turns the backpack's backlight output on (any non-zero
// intensity) or off. The PCF8574 drives a single transistor, so there are no
// intermediate levels. The chosen state rides along with every subsequent
// transmission.
func (d *Dev) Backlight(intensity display.Intensity) error {
	d.backlight = intensity > 0
	// A zero-data write so the new backlight bit reaches the pin now. The
	// LCD controller itself sees no command.
	return wrap(d.expanderWrite(0))
}

// GetBacklight reports the shadow backlight state. The hardware cannot be
// queried.
func (d *Dev) GetBacklight() bool {
	return d.backlight
}

// Rows returns the number of rows the display supports.
func (d *Dev) Rows() int {
	return d.rows
}

// Cols returns the number of columns the display supports.
func (d *Dev) Cols() int {
	return d.cols
}

// MinRow returns the min row position for MoveTo.
func (d *Dev) MinRow() int {
	return 1
}

// MinCol returns the min column position for MoveTo.
func (d *Dev) MinCol() int {
	return 1
}

func (d *Dev) String() string {
	return fmt.Sprintf("%s{%s} Rows: %d Cols: %d", packageName, d.d.String(), d.rows, d.cols)
}

// Halt clears the display and turns the display and backlight off. The
// controller has no power-down; it simply remains in this state.
func (d *Dev) Halt() error {
	_ = d.Clear()
	_ = d.Display(false)
	return d.Backlight(0)
}

// sendControl retransmits the full display control register.
func (d *Dev) sendControl() error {
	return d.Command(cmdDisplayControl | controlFlags(d.on, d.cursor, d.blink))
}

// sendEntryMode retransmits the full entry mode register.
func (d *Dev) sendEntryMode() error {
	return d.Command(cmdEntryModeSet | entryModeFlags(d.leftToRight, d.autoscroll))
}

func (d *Dev) writeData(value byte) error {
	return wrap(d.send(value, pinRegisterSelect))
}

// send splits a byte into two nibble transmissions. mode carries the
// register select bit: 0 for a command, pinRegisterSelect for data.
func (d *Dev) send(value, mode byte) error {
	if err := d.write4bits(value&0xf0 | mode); err != nil {
		return err
	}
	return d.write4bits(value<<4&0xf0 | mode)
}

// write4bits presents a nibble plus control bits on the expander and strobes
// it into the controller.
func (d *Dev) write4bits(value byte) error {
	if err := d.expanderWrite(value); err != nil {
		return err
	}
	return d.pulseEnable(value)
}

// pulseEnable latches the presented nibble. The enable pulse must stay high
// for >450ns and the controller needs >37us to process it afterwards; too
// little of either silently corrupts the transfer on real hardware.
func (d *Dev) pulseEnable(value byte) error {
	if err := d.expanderWrite(value | pinEnable); err != nil {
		return err
	}
	time.Sleep(delayEnablePulse)
	if err := d.expanderWrite(value &^ pinEnable); err != nil {
		return err
	}
	time.Sleep(delayCommandSettle)
	return nil
}

// expanderWrite is the single point of contact with the bus. Every byte that
// reaches the PCF8574 goes through here so the backlight bit can never be
// dropped by an unrelated operation.
func (d *Dev) expanderWrite(data byte) error {
	if d.backlight {
		data |= pinBacklight
	}
	return d.d.Tx([]byte{data}, nil)
}

var _ conn.Resource = &Dev{}
var _ display.TextDisplay = &Dev{}
var _ display.DisplayBacklight = &Dev{}
var _ io.Writer = &Dev{}
