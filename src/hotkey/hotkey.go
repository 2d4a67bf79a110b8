package hotkey

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	gohook "github.com/robotn/gohook"
)

type key struct {
	name     string
	rawcodes []uint16
	pressed  bool
}

// Matcher tracks key down/up events and reports when every key of a
// combination is held.
type Matcher struct {
	mu    sync.Mutex
	combo string
	keys  []key
}

// Parse builds a Matcher for a combination such as "Ctrl+Alt+T".
func Parse(combo string) (*Matcher, error) {
	m := &Matcher{combo: combo}
	for _, name := range parseHotkey(combo) {
		rawcodes := keyNameToRawcodes(name)
		if len(rawcodes) == 0 {
			return nil, fmt.Errorf("cannot map key %q in hotkey %q", name, combo)
		}
		m.keys = append(m.keys, key{name: name, rawcodes: rawcodes})
	}
	if len(m.keys) == 0 {
		return nil, fmt.Errorf("no valid keys in hotkey %q", combo)
	}
	return m, nil
}

// Handle feeds one key event. It returns true exactly once per completed
// combination; the pressed state is reset afterwards.
func (m *Matcher) Handle(down bool, rawcode uint16) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.keys {
		if !m.keys[i].matches(rawcode) {
			continue
		}
		if down {
			m.keys[i].pressed = true
		} else {
			m.keys[i].pressed = false
		}
	}
	if !down {
		return false
	}
	for i := range m.keys {
		if !m.keys[i].pressed {
			return false
		}
	}
	for i := range m.keys {
		m.keys[i].pressed = false
	}
	return true
}

func (k key) matches(rawcode uint16) bool {
	for _, rc := range k.rawcodes {
		if rc == rawcode {
			return true
		}
	}
	return false
}

// Listen registers a global hotkey and calls callback from the hook goroutine
// whenever it fires. The hook is released when ctx is done.
func Listen(ctx context.Context, combo string, callback func()) error {
	m, err := Parse(combo)
	if err != nil {
		return err
	}
	log.Printf("Hotkey listener configured for: %s", combo)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("PANIC in hotkey goroutine: %v", r)
			}
		}()

		evChan := gohook.Start()
		if evChan == nil {
			log.Printf("ERROR: gohook.Start() returned nil channel")
			return
		}
		defer gohook.End()

		for {
			select {
			case <-ctx.Done():
				log.Printf("Hotkey listener stopped")
				return
			case ev, ok := <-evChan:
				if !ok {
					log.Printf("Event channel closed")
					return
				}
				if ev.Kind != gohook.KeyDown && ev.Kind != gohook.KeyUp {
					continue
				}
				if m.Handle(ev.Kind == gohook.KeyDown, ev.Rawcode) {
					log.Printf("Hotkey activated: %s", combo)
					if callback != nil {
						callback()
					}
				}
			}
		}
	}()
	return nil
}

// parseHotkey converts a hotkey string like "Ctrl+Alt+q" to normalized key names
func parseHotkey(hotkeyConfig string) []string {
	var keys []string
	for _, part := range strings.Split(strings.ToLower(hotkeyConfig), "+") {
		part = strings.TrimSpace(part)
		switch part {
		case "":
			continue
		case "control":
			keys = append(keys, "ctrl")
		case "win", "cmd", "super":
			keys = append(keys, "cmd")
		default:
			keys = append(keys, part)
		}
	}
	return keys
}

var namedKeys = map[string][]uint16{
	"ctrl":  {162, 163}, // VK_LCONTROL, VK_RCONTROL
	"alt":   {164, 165}, // VK_LMENU, VK_RMENU
	"shift": {160, 161}, // VK_LSHIFT, VK_RSHIFT
	"cmd":   {91, 92},   // VK_LWIN, VK_RWIN

	"space":     {32},
	"enter":     {13},
	"return":    {13},
	"esc":       {27},
	"escape":    {27},
	"tab":       {9},
	"backspace": {8},
	"delete":    {46},
	"del":       {46},
	"insert":    {45},
	"ins":       {45},
	"home":      {36},
	"end":       {35},
	"pageup":    {33},
	"pgup":      {33},
	"pagedown":  {34},
	"pgdn":      {34},
	"left":      {37},
	"up":        {38},
	"right":     {39},
	"down":      {40},
}

// keyNameToRawcodes maps a key name to its Windows virtual key codes. Modifiers
// map to both the left and right variant.
func keyNameToRawcodes(keyName string) []uint16 {
	keyName = strings.ToLower(strings.TrimSpace(keyName))
	if keyName == "win" || keyName == "super" {
		keyName = "cmd"
	}
	if codes, ok := namedKeys[keyName]; ok {
		return codes
	}

	if len(keyName) == 1 {
		c := keyName[0]
		switch {
		case c >= 'a' && c <= 'z':
			return []uint16{uint16(c-'a') + 65} // VK 0x41-0x5A
		case c >= '0' && c <= '9':
			return []uint16{uint16(c-'0') + 48} // VK 0x30-0x39
		}
	}

	var n int
	if _, err := fmt.Sscanf(keyName, "f%d", &n); err == nil && n >= 1 && n <= 24 && keyName == fmt.Sprintf("f%d", n) {
		return []uint16{uint16(111 + n)} // VK_F1 = 112
	}

	log.Printf("WARNING: Unknown key name '%s', cannot map to rawcode", keyName)
	return nil
}
