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

// Command chip8play is the desktop shell: an SDL2 window, renderer, audio
// device, and key map around an internal/chip8.CPU, generalized from the
// teacher emulator's main.go/audio.go/input.go/screen.go/font.go. Unlike
// the teacher, it never uses cgo for audio playback — samples are pulled
// from the CPU's audio pattern each frame and queued with go-sdl2's
// QueueAudio.
package main

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/sqweek/dialog"
	"github.com/veandco/go-sdl2/sdl"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/massung/chip8vm/internal/chip8"
	"github.com/massung/chip8vm/internal/debugger"
	"github.com/massung/chip8vm/internal/devlog"
)

const (
	windowW, windowH = 900, 540
	screenScale      = 8
)

var keyMap = map[sdl.Scancode]int{
	sdl.SCANCODE_X: 0x0,
	sdl.SCANCODE_1: 0x1,
	sdl.SCANCODE_2: 0x2,
	sdl.SCANCODE_3: 0x3,
	sdl.SCANCODE_Q: 0x4,
	sdl.SCANCODE_W: 0x5,
	sdl.SCANCODE_E: 0x6,
	sdl.SCANCODE_A: 0x7,
	sdl.SCANCODE_S: 0x8,
	sdl.SCANCODE_D: 0x9,
	sdl.SCANCODE_Z: 0xA,
	sdl.SCANCODE_C: 0xB,
	sdl.SCANCODE_4: 0xC,
	sdl.SCANCODE_R: 0xD,
	sdl.SCANCODE_F: 0xE,
	sdl.SCANCODE_V: 0xF,
}

type shell struct {
	cpu   *chip8.CPU
	dbg   *debugger.Debugger
	log   *devlog.Log
	mode  chip8.Mode
	file  string

	window   *sdl.Window
	renderer *sdl.Renderer
	screen   *sdl.Texture
	overlay  *sdl.Texture
	device   sdl.AudioDeviceID
}

func init() {
	runtime.LockOSThread()
}

func main() {
	root := &cobra.Command{
		Use:   "chip8play [rom]",
		Short: "Play a CHIP-8/Super-CHIP/XO-CHIP ROM in an SDL2 window",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runPlay,
	}
	root.Flags().String("mode", "cosmac", "interpreter mode: cosmac, super-chip, xo-chip")
	root.Flags().Bool("eti", false, "load the ROM at 0x600 (ETI-660 layout)")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runPlay(cmd *cobra.Command, args []string) error {
	modeFlag, _ := cmd.Flags().GetString("mode")
	eti, _ := cmd.Flags().GetBool("eti")

	mode, ok := chip8.ParseMode(modeFlag)
	if !ok {
		return fmt.Errorf("unknown mode %q", modeFlag)
	}

	s := &shell{
		mode: mode,
		dbg:  debugger.New(),
		log:  devlog.New(),
	}
	s.log.Line("chip8vm — press F3 to load a ROM")

	s.cpu = chip8.New(mode, 0x9E3779B97F4A7C15)
	if eti {
		s.cpu.UseETIBase(true)
	}

	if len(args) == 1 {
		if err := s.load(args[0]); err != nil {
			s.log.Printf("load failed: %v", err)
		}
	}

	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_AUDIO); err != nil {
		return err
	}
	defer sdl.Quit()

	if err := s.createWindow(); err != nil {
		return err
	}
	defer s.window.Destroy()
	defer s.renderer.Destroy()

	if err := s.openAudio(); err != nil {
		return err
	}
	defer sdl.CloseAudioDevice(s.device)

	clock := sdl.GetPerformanceCounter()
	freq := float64(sdl.GetPerformanceFrequency())

	for s.processEvents() {
		now := sdl.GetPerformanceCounter()
		dt := float64(now-clock) / freq
		clock = now

		if err := s.dbg.EmulateUntilBreakpoints(s.cpu, dt); err != nil {
			switch err.(type) {
			case chip8.Breakpoint:
				s.log.Printf("%v", err)
			case chip8.NoRomLoaded:
				// nothing loaded yet; keep idling
			default:
				s.log.Printf("halted: %v", err)
			}
		}

		s.queueAudio()
		s.redraw()
		sdl.Delay(1)
	}
	return nil
}

func (s *shell) load(path string) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := s.cpu.LoadROM(buf); err != nil {
		return err
	}
	s.dbg.NoteROMLoaded()
	s.dbg.Execute(s.cpu, "resume")
	s.file = path
	s.log.Printf("loaded %s (%d bytes)", filepath.Base(path), len(buf))
	return nil
}

func (s *shell) createWindow() error {
	var err error
	s.window, s.renderer, err = sdl.CreateWindowAndRenderer(windowW, windowH, sdl.WINDOW_SHOWN)
	if err != nil {
		return err
	}
	s.window.SetTitle("chip8vm")

	s.screen, err = s.renderer.CreateTexture(uint32(sdl.PIXELFORMAT_ARGB8888), sdl.TEXTUREACCESS_STREAMING, chip8.HighWidth, chip8.HighHeight)
	if err != nil {
		return err
	}
	s.overlay, err = s.renderer.CreateTexture(uint32(sdl.PIXELFORMAT_ARGB8888), sdl.TEXTUREACCESS_STREAMING, windowW, windowH)
	return err
}

func (s *shell) openAudio() error {
	spec := &sdl.AudioSpec{
		Freq:     48000,
		Format:   sdl.AUDIO_F32,
		Channels: 1,
		Samples:  512,
	}
	device, err := sdl.OpenAudioDevice("", false, spec, nil, 0)
	if err != nil {
		return err
	}
	s.device = device
	sdl.PauseAudioDevice(s.device, false)
	return nil
}

func (s *shell) queueAudio() {
	buf := make([]float32, 512)
	s.cpu.ReadBeepSamplesTo(buf)
	raw := make([]byte, len(buf)*4)
	for i, v := range buf {
		bits := math.Float32bits(v)
		raw[i*4] = byte(bits)
		raw[i*4+1] = byte(bits >> 8)
		raw[i*4+2] = byte(bits >> 16)
		raw[i*4+3] = byte(bits >> 24)
	}
	sdl.QueueAudio(s.device, raw)
}

func (s *shell) processEvents() bool {
	for e := sdl.PollEvent(); e != nil; e = sdl.PollEvent() {
		switch ev := e.(type) {
		case *sdl.QuitEvent:
			return false
		case *sdl.DropEvent:
			if err := s.load(ev.File); err != nil {
				s.log.Printf("load failed: %v", err)
			}
		case *sdl.KeyboardEvent:
			s.handleKey(ev)
		}
	}
	return true
}

func (s *shell) handleKey(ev *sdl.KeyboardEvent) {
	if key, ok := keyMap[ev.Keysym.Scancode]; ok {
		if ev.Type == sdl.KEYUP {
			s.cpu.ReleaseKey(key)
		} else {
			s.cpu.PressKey(key)
		}
		return
	}
	if ev.Type != sdl.KEYDOWN {
		return
	}
	switch ev.Keysym.Scancode {
	case sdl.SCANCODE_ESCAPE:
		s.dbg.Execute(s.cpu, "pause")
	case sdl.SCANCODE_BACKSPACE:
		s.dbg.Execute(s.cpu, "reboot")
		if s.file != "" {
			s.load(s.file)
		}
	case sdl.SCANCODE_F3:
		if file, err := dialog.File().Title("Load ROM").Load(); err == nil {
			s.load(file)
		}
	case sdl.SCANCODE_F4:
		if file, err := dialog.File().Title("Dump memory").Save(); err == nil {
			s.dbg.Execute(s.cpu, "dump_memory "+file)
		}
	case sdl.SCANCODE_F5, sdl.SCANCODE_SPACE:
		if s.dbg.Paused() {
			s.dbg.Execute(s.cpu, "resume")
		} else {
			s.dbg.Execute(s.cpu, "pause")
		}
	case sdl.SCANCODE_F6, sdl.SCANCODE_F10:
		if s.dbg.Paused() {
			if _, err := s.dbg.Execute(s.cpu, "step"); err != nil {
				s.log.Printf("%v", err)
			}
		}
	case sdl.SCANCODE_F7, sdl.SCANCODE_F11:
		if s.dbg.Paused() {
			if _, err := s.dbg.Execute(s.cpu, "finish"); err != nil {
				s.log.Printf("%v", err)
			}
		}
	case sdl.SCANCODE_PAGEUP:
		s.log.ScrollUp()
	case sdl.SCANCODE_PAGEDOWN:
		s.log.ScrollDown(16)
	}
}

func (s *shell) redraw() {
	w, h := s.cpu.Display.Resolution()
	buf := s.cpu.Display.ToBuffer(1, 1, s.mode == chip8.XoChip)

	pixels := make([]byte, len(buf)*4)
	for i, px := range buf {
		pixels[i*4] = byte(px)
		pixels[i*4+1] = byte(px >> 8)
		pixels[i*4+2] = byte(px >> 16)
		pixels[i*4+3] = 0xFF
	}
	s.screen.Update(nil, pixels, w*4)

	s.renderer.SetDrawColor(20, 22, 26, 255)
	s.renderer.Clear()

	dst := sdl.Rect{X: 20, Y: 20, W: int32(w * screenScale), H: int32(h * screenScale)}
	src := sdl.Rect{W: int32(w), H: int32(h)}
	s.renderer.Copy(s.screen, &src, &dst)

	s.drawOverlay()
	s.renderer.Present()
}

// drawOverlay rasterizes the log and register panel into an RGBA buffer
// with golang.org/x/image/font/basicfont, replacing the teacher's
// font.bmp texture-atlas approach with a vector-originated bitmap face.
func (s *shell) drawOverlay() {
	img := image.NewRGBA(image.Rect(0, 0, windowW, windowH))
	face := basicfont.Face7x13

	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.RGBA{220, 220, 220, 255}),
		Face: face,
	}

	y := 20
	for _, line := range s.log.Window(12) {
		drawer.Dot = fixed.P(20, 460+y)
		drawer.DrawString(line)
		y += 14
	}

	regY := 20
	for i, v := range s.cpu.V {
		drawer.Dot = fixed.P(windowW-200, regY)
		drawer.DrawString(fmt.Sprintf("V%X=%02X", i, v))
		regY += 16
	}

	s.overlay.Update(nil, img.Pix, img.Stride)
	s.renderer.Copy(s.overlay, nil, nil)
}
