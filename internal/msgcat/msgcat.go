// Package msgcat holds the user-facing status strings of the client.
package msgcat

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileName is the catalog file looked up in an override directory.
const FileName = "messages.en.yaml"

// Key identifies one message.
type Key string

const (
	Connected      Key = "connected"
	ConnectionLost Key = "connection_lost"
	PlayingAs      Key = "playing_as"
	Spectating     Key = "spectating"
	Moved          Key = "moved"
	MoveSent       Key = "move_sent"
	InvalidMove    Key = "invalid_move"
	NotYourTurn    Key = "not_your_turn"
	NewGame        Key = "new_game"
	ToMove         Key = "to_move"
	GameOver       Key = "game_over"
	Resyncing      Key = "resyncing"
)

//go:embed messages.en.yaml
var defaultMessages []byte

// Catalog maps keys to message templates.
type Catalog struct {
	messages map[Key]string
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := Parse(defaultMessages)
	if err != nil {
		panic(fmt.Sprintf("msgcat: embedded catalog: %v", err))
	}
	return c
}

// Parse decodes a YAML mapping of key to template.
func Parse(data []byte) (*Catalog, error) {
	raw := map[string]string{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	c := &Catalog{messages: make(map[Key]string, len(raw))}
	for k, v := range raw {
		c.messages[Key(k)] = v
	}
	return c, nil
}

// Load returns the built-in catalog overlaid with dir/messages.en.yaml when
// that file exists. An empty dir yields the defaults.
func Load(dir string) (*Catalog, error) {
	c := Default()
	if dir == "" {
		return c, nil
	}
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if errors.Is(err, fs.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	override, err := Parse(data)
	if err != nil {
		return nil, err
	}
	for k, v := range override.messages {
		c.messages[k] = v
	}
	return c, nil
}

// Text renders key, replacing {name} placeholders from alternating
// name/value pairs. Unknown keys render as the key itself.
func (c *Catalog) Text(key Key, pairs ...string) string {
	tmpl, ok := c.messages[key]
	if !ok {
		return string(key)
	}
	if len(pairs) < 2 {
		return tmpl
	}
	oldnew := make([]string, 0, len(pairs))
	for i := 0; i+1 < len(pairs); i += 2 {
		oldnew = append(oldnew, "{"+pairs[i]+"}", pairs[i+1])
	}
	return strings.NewReplacer(oldnew...).Replace(tmpl)
}
