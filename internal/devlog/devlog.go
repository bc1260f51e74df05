/* Copyright (c) 2017 Jeffrey Massung
 *
 * This software is provided 'as-is', without any express or implied
 * warranty.  In no event will the authors be held liable for any damages
 * arising from the use of this software.
 *
 * Permission is granted to anyone to use this software for any purpose,
 * including commercial applications, and to alter it and redistribute it
 * freely, subject to the following restrictions:
 *
 * 1. The origin of this software must not be misrepresented; you must not
 *    claim that you wrote the original software. If you use this software
 *    in a product, an acknowledgment in the product documentation would be
 *    appreciated but is not required.
 *
 * 2. Altered source versions must be plainly marked as such, and must not be
 *    misrepresented as being the original software.
 *
 * 3. This notice may not be removed or altered from any source distribution.
 */

// Package devlog is a small scrollable in-memory log, used by the
// desktop shell's on-screen overlay.
package devlog

import (
	"fmt"
	"strings"
)

// Log accumulates lines of text and tracks a scroll position over them,
// generalized from the CHIP-8 desktop emulator's debug overlay logger.
type Log struct {
	buf []string
	pos int
}

// New creates an empty Log.
func New() *Log {
	return &Log{buf: make([]string, 0, 100)}
}

// Printf appends one formatted line.
func (l *Log) Printf(format string, args ...interface{}) {
	l.Line(fmt.Sprintf(format, args...))
}

// Line appends a single line of already-formatted text.
func (l *Log) Line(s string) {
	scroll := l.pos == len(l.buf)
	l.buf = append(l.buf, s)
	if scroll {
		l.pos = len(l.buf)
	}
}

// Section appends a blank separator line followed by the given text,
// mirroring the teacher's Logln ("log a new section") convention.
func (l *Log) Section(s ...string) {
	scroll := l.pos == len(l.buf)
	l.buf = append(l.buf, "", strings.Join(s, " "))
	if scroll {
		l.pos = len(l.buf)
	}
}

// Window returns the n most recently visible lines at the current scroll
// position.
func (l *Log) Window(n int) []string {
	start := l.pos - n
	if start < 0 {
		start = 0
	}
	if start+n >= len(l.buf) {
		return l.buf[start:]
	}
	return l.buf[start : start+n]
}

func (l *Log) Home() { l.pos = 0 }
func (l *Log) End()  { l.pos = len(l.buf) }

func (l *Log) ScrollUp() {
	l.pos--
	if l.pos < 0 {
		l.Home()
	}
}

func (l *Log) ScrollDown(windowSize int) {
	l.pos++
	if l.pos <= windowSize {
		l.pos = windowSize + 1
	}
	if l.pos >= len(l.buf) {
		l.End()
	}
}

// Len reports how many lines are currently buffered.
func (l *Log) Len() int { return len(l.buf) }
