// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package lcdsim emulates an HD44780 character LCD behind a PCF8574 I²C
// backpack, decoding the driver's wire traffic from the expander side.
//
// Sim implements i2c.Bus, so it drops in anywhere a real bus is expected. It
// latches nibbles on the falling edge of the enable bit, tracks the 8-bit to
// 4-bit interface handshake, and interprets the full HD44780 instruction set
// against in-memory DDRAM and CGRAM. Render draws the resulting panel to a
// terminal using ANSI color codes.
//
// Useful while you are waiting for your display backpack to come by mail,
// and for end to end driver tests that assert on what a panel would show.
package lcdsim

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"strings"
	"sync"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// Backpack output bit assignments, mirroring the LCM1602 wiring.
const (
	pinRegisterSelect byte = 0x01
	pinEnable         byte = 0x04
	pinBacklight      byte = 0x08
)

var rowOffsets = [4]byte{0x00, 0x40, 0x14, 0x54}

// Opts represents the options available for the simulator.
type Opts struct {
	// Addr is the I²C address the simulated backpack answers on.
	Addr uint16
	// Cols and Rows describe the simulated panel geometry.
	Cols int
	Rows int
	// Writer receives Render output. Defaults to a colorable stdout.
	Writer io.Writer
	// Palette used for the backlight indicator.
	Palette *ansi256.Palette
}

// DefaultOpts simulates the common 16x2 panel at address 0x27.
var DefaultOpts = Opts{
	Addr: 0x27,
	Cols: 16,
	Rows: 2,
}

// Sim is a simulated backpack plus panel. It implements i2c.Bus.
//
// The zero value is not usable; construct with New.
type Sim struct {
	addr    uint16
	cols    int
	rows    int
	w       io.Writer
	palette ansi256.Palette

	mu sync.Mutex
	// Controller memory. DDRAM is two 40 byte banks; rows 2 and 3 alias
	// into the tails of the banks for rows 0 and 1.
	ddram [80]byte
	cgram [64]byte
	// ac is the address counter, in controller address space.
	ac      byte
	inCGRAM bool
	// shift is the display window offset in columns, modulo 40.
	shift int

	// Interface state. The controller wakes up expecting 8 bit transfers.
	fourBit  bool
	haveHigh bool
	high     byte
	lastByte byte

	backlight    bool
	increment    bool
	shiftOnWrite bool
	displayOn    bool
	cursorOn     bool
	blinkOn      bool
	twoLine      bool
}

// New returns a simulated panel. Use nil opts for a 16x2 at address 0x27.
func New(opts *Opts) *Sim {
	if opts == nil {
		opts = &DefaultOpts
	}
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	w := opts.Writer
	if w == nil {
		w = colorable.NewColorableStdout()
	}
	s := &Sim{
		addr:      opts.Addr,
		cols:      opts.Cols,
		rows:      opts.Rows,
		w:         w,
		palette:   *p,
		increment: true,
	}
	for i := range s.ddram {
		s.ddram[i] = ' '
	}
	return s
}

func (s *Sim) String() string {
	return fmt.Sprintf("lcdsim{%dx%d@%#02x}", s.cols, s.rows, s.addr)
}

// SetSpeed is a no-op; the simulator has no clock.
func (s *Sim) SetSpeed(f physic.Frequency) error {
	return nil
}

// Tx decodes expander writes. Reads are rejected: the backpack's R/W line is
// treated as wired low, like on the real module.
func (s *Sim) Tx(addr uint16, w, r []byte) error {
	if addr != s.addr {
		return fmt.Errorf("lcdsim: no device at address %#02x", addr)
	}
	if len(r) != 0 {
		return fmt.Errorf("lcdsim: the backpack is write-only")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range w {
		s.step(b)
	}
	return nil
}

// step processes one expander register value. A nibble is latched when the
// enable bit falls.
func (s *Sim) step(b byte) {
	s.backlight = b&pinBacklight != 0
	fall := s.lastByte&pinEnable != 0 && b&pinEnable == 0
	s.lastByte = b
	if !fall {
		return
	}
	s.latch(b>>4, b&pinRegisterSelect != 0)
}

func (s *Sim) latch(nibble byte, rs bool) {
	if !s.fourBit {
		// 8 bit mode with only four lines wired: the nibble lands in the
		// high half, the low half floats.
		s.execute(nibble<<4, rs)
		return
	}
	if !s.haveHigh {
		s.high = nibble
		s.haveHigh = true
		return
	}
	s.haveHigh = false
	s.execute(s.high<<4|nibble, rs)
}

func (s *Sim) execute(v byte, rs bool) {
	if rs {
		s.writeData(v)
		return
	}
	switch {
	case v&0x80 != 0: // set DDRAM address
		s.ac = v & 0x7f
		s.inCGRAM = false
	case v&0x40 != 0: // set CGRAM address
		s.ac = v & 0x3f
		s.inCGRAM = true
	case v&0x20 != 0: // function set
		s.fourBit = v&0x10 == 0
		s.twoLine = v&0x08 != 0
		s.haveHigh = false
	case v&0x10 != 0: // cursor/display shift
		right := v&0x04 != 0
		if v&0x08 != 0 {
			// Shifting the content left moves the window right.
			if right {
				s.shift--
			} else {
				s.shift++
			}
		} else {
			if right {
				s.ac++
			} else {
				s.ac--
			}
			s.ac &= 0x7f
		}
	case v&0x08 != 0: // display control
		s.displayOn = v&0x04 != 0
		s.cursorOn = v&0x02 != 0
		s.blinkOn = v&0x01 != 0
	case v&0x04 != 0: // entry mode set
		s.increment = v&0x02 != 0
		s.shiftOnWrite = v&0x01 != 0
	case v&0x02 != 0: // return home
		s.ac = 0
		s.shift = 0
		s.inCGRAM = false
	case v&0x01 != 0: // clear display
		for i := range s.ddram {
			s.ddram[i] = ' '
		}
		s.ac = 0
		s.shift = 0
		s.increment = true
		s.inCGRAM = false
	}
}

func (s *Sim) writeData(v byte) {
	if s.inCGRAM {
		s.cgram[s.ac&0x3f] = v
		if s.increment {
			s.ac = (s.ac + 1) & 0x3f
		} else {
			s.ac = (s.ac - 1) & 0x3f
		}
		return
	}
	if idx, ok := ddramIndex(s.ac); ok {
		s.ddram[idx] = v
	}
	if s.increment {
		s.ac++
	} else {
		s.ac--
	}
	s.ac &= 0x7f
	if s.shiftOnWrite {
		if s.increment {
			s.shift++
		} else {
			s.shift--
		}
	}
}

// ddramIndex maps a controller DDRAM address to the backing array. Addresses
// in the gaps between the banks are writable on real silicon but never
// displayed; they're dropped here.
func ddramIndex(a byte) (int, bool) {
	if a < 0x28 {
		return int(a), true
	}
	if a >= 0x40 && a < 0x68 {
		return int(a) - 0x40 + 40, true
	}
	return 0, false
}

// Text returns the characters currently visible on the panel, one string per
// row, cols wide. CGRAM glyphs appear as their slot byte (0-7). When the
// display is off all rows read blank, matching what a viewer sees.
func (s *Sim) Text() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, s.rows)
	for r := 0; r < s.rows; r++ {
		if !s.displayOn {
			out[r] = strings.Repeat(" ", s.cols)
			continue
		}
		base := rowOffsets[r]
		bank := 0
		if base&0x40 != 0 {
			bank = 40
		}
		off := int(base & 0x3f)
		row := make([]byte, s.cols)
		for c := 0; c < s.cols; c++ {
			pos := off + c + s.shift
			pos = (pos%40 + 40) % 40
			row[c] = s.ddram[bank+pos]
		}
		out[r] = string(row)
	}
	return out
}

// Glyph returns the CGRAM pattern in the given slot (0-7), rows masked to
// their 5 valid bits.
func (s *Sim) Glyph(slot int) [8]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out [8]byte
	slot &= 0x7
	for i := 0; i < 8; i++ {
		out[i] = s.cgram[slot*8+i] & 0x1f
	}
	return out
}

// Backlight reports the state of the backlight output pin.
func (s *Sim) Backlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backlight
}

// CursorAddr returns the controller's address counter.
func (s *Sim) CursorAddr() byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ac
}

// Render draws the panel to the configured writer: a bordered character
// grid with a backlight indicator block on each row.
func (s *Sim) Render() error {
	text := s.Text()
	s.mu.Lock()
	bl := s.backlight
	cols := s.cols
	s.mu.Unlock()

	led := color.NRGBA{A: 255}
	if bl {
		led = color.NRGBA{R: 0x40, G: 0xc8, B: 0xff, A: 255}
	}
	var buf bytes.Buffer
	buf.WriteString("\033[0m+")
	buf.WriteString(strings.Repeat("-", cols))
	buf.WriteString("+\n")
	for _, row := range text {
		buf.WriteByte('|')
		for i := 0; i < len(row); i++ {
			c := row[i]
			if c < 0x20 {
				// CGRAM and control bytes have no terminal form.
				c = '?'
			}
			buf.WriteByte(c)
		}
		buf.WriteString("| ")
		buf.WriteString(s.palette.Block(led))
		buf.WriteString("\033[0m\n")
	}
	buf.WriteByte('+')
	buf.WriteString(strings.Repeat("-", cols))
	buf.WriteString("+\n")
	_, err := buf.WriteTo(s.w)
	return err
}

var _ i2c.Bus = &Sim{}
var _ fmt.Stringer = &Sim{}
