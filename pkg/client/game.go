package client

// GameInfo is the decoded body of GET /games/{id}.
// It is fetched once per session and never modified afterwards.
type GameInfo struct {
	Game      Game   `json:"Game"`
	LastFrame *Frame `json:"LastFrame,omitempty"`
}

// ID returns the identifier of the described game.
func (g *GameInfo) ID() string {
	if g == nil {
		return ""
	}
	return g.Game.ID
}

// Game holds the engine metadata of a single game.
type Game struct {
	ID           string            `json:"ID"`
	Status       string            `json:"Status"`
	Width        int               `json:"Width"`
	Height       int               `json:"Height"`
	Ruleset      map[string]string `json:"Ruleset,omitempty"`
	SnakeTimeout int               `json:"SnakeTimeout,omitempty"`
	Source       string            `json:"Source,omitempty"`
}

// Frame is the state of every snake at one turn of a game.
type Frame struct {
	Turn    int     `json:"Turn"`
	Snakes  []Snake `json:"Snakes"`
	Food    []Point `json:"Food,omitempty"`
	Hazards []Point `json:"Hazards,omitempty"`
}

// Snake is one participant within a Frame.
type Snake struct {
	ID            string  `json:"ID"`
	Name          string  `json:"Name"`
	Body          []Point `json:"Body"`
	Health        int     `json:"Health"`
	Death         *Death  `json:"Death"`
	Color         string  `json:"Color,omitempty"`
	HeadType      string  `json:"HeadType,omitempty"`
	TailType      string  `json:"TailType,omitempty"`
	Latency       string  `json:"Latency,omitempty"`
	Shout         string  `json:"Shout,omitempty"`
	Squad         string  `json:"Squad,omitempty"`
	Author        string  `json:"Author,omitempty"`
	IsBot         bool    `json:"IsBot,omitempty"`
	IsEnvironment bool    `json:"IsEnvironment,omitempty"`
}

// IsDead reports whether the snake carries a death record.
func (s Snake) IsDead() bool {
	return s.Death != nil
}

// Death describes how and when a snake was eliminated.
type Death struct {
	Cause        string `json:"Cause"`
	Turn         int    `json:"Turn"`
	EliminatedBy string `json:"EliminatedBy,omitempty"`
}

// Point is a board coordinate.
type Point struct {
	X int `json:"X"`
	Y int `json:"Y"`
}

// FramePage is the decoded body of GET /games/{id}/frames.
type FramePage struct {
	Count  int     `json:"Count"`
	Frames []Frame `json:"Frames"`
}

// LastFrame returns the final frame of the page, or nil if the page is empty.
func (p *FramePage) LastFrame() *Frame {
	if p == nil || len(p.Frames) == 0 {
		return nil
	}
	return &p.Frames[len(p.Frames)-1]
}
