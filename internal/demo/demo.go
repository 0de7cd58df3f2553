// Package demo is a small game-like catalog used by the reference binary
// and the end-to-end tests.
package demo

import (
	"fmt"
	"reflect"
	"strings"
	"sync/atomic"
	"time"

	"github.com/reglet-dev/glimpse"
	"github.com/reglet-dev/glimpse/event"
	"github.com/reglet-dev/glimpse/geom"
	"github.com/reglet-dev/glimpse/marker"
)

// Stats is embedded by every creature.
type Stats struct {
	HP   int     `glimpse:"HP,segment:tick,processor:hearts,tags:combat,color:#ff5555"`
	Mana float64 `glimpse:"Mana,format:%.1f,if:Casting,tags:magic"`

	casting bool
}

// Casting reports whether the creature is channelling a spell.
func (s *Stats) Casting() bool { return s.casting }

// Hero is the player character.
type Hero struct {
	Stats

	Name      string                   `glimpse:"Name,segment:manual,pos:1,cond:notblank"`
	Position  geom.Vec2                `glimpse:"Position,segment:frame,group:transform"`
	Inventory []string                 `glimpse:"Inventory,index,elem:2,cond:any"`
	Buffs     map[string]time.Duration `glimpse:"Buffs,cond:any"`
	Token     string                   `glimpse:"Token,redact"`
	Level     int                      `glimpse:"Level,event:Leveled,segment:manual"`
	Stealth   float64                  `glimpse:"Stealth,when:Cloaked,format:%.0f%%"`

	Leveled *event.Event[int]
	Cloaked *event.Event[bool]

	speed float64
}

// NewHero creates a hero with its events wired.
func NewHero(name string) *Hero {
	return &Hero{
		Stats:    Stats{HP: 3, Mana: 12},
		Name:     name,
		Buffs:    map[string]time.Duration{},
		Leveled:  &event.Event[int]{},
		Cloaked:  &event.Event[bool]{},
		Position: geom.Vec2{},
		Level:    1,
		speed:    1.5,
	}
}

// Speed is the current movement speed.
func (h *Hero) Speed() float64 { return h.speed }

// Bounds reports the hero's bounding box.
func (h *Hero) Bounds(lo, hi *geom.Vec2) {
	*lo = geom.Vec2{X: h.Position.X - 0.5, Y: h.Position.Y - 0.5}
	*hi = geom.Vec2{X: h.Position.X + 0.5, Y: h.Position.Y + 0.5}
}

func (*Hero) MonitorMembers() []marker.Member {
	return []marker.Member{
		marker.Property("Speed", marker.Format("%.2f"), marker.Expr("value > 0")),
		marker.Method("Bounds",
			marker.Label("Bounds"),
			marker.OutParam(0, "min"),
			marker.OutParam(1, "max"),
			marker.Update(marker.SegmentFrame)),
		marker.Event("Leveled", marker.Label("Level ups")),
	}
}

// LevelUp raises the level and notifies Leveled.
func (h *Hero) LevelUp() {
	h.Level++
	h.Leveled.Raise(h.Level)
}

// Cloak toggles stealth; the Stealth unit is shown only while cloaked.
func (h *Hero) Cloak(on bool) {
	if on {
		h.Stealth = 80
	}
	h.Cloaked.Raise(on)
}

// Pool is a generic container; its members are declared by annotation on
// the generic origin so every instantiation is monitored.
type Pool[T any] struct {
	Items []T
	Cap   int
}

// World is the namespace of global counters.
type World struct{ _ marker.Static }

var (
	ticks   atomic.Uint64
	started = time.Now()
	weather = "clear"
)

// Tick advances the world clock and moves the hero.
func Tick(h *Hero) {
	n := ticks.Add(1)
	if h == nil {
		return
	}
	h.Position.X += h.speed
	if n%5 == 0 && h.HP < 5 {
		h.HP++
	}
}

// Hearts renders HP as hearts.
func Hearts(_ marker.FormatOptions, hp int) string {
	if hp <= 0 {
		return "dead"
	}
	return strings.Repeat("♥", hp)
}

// Catalog registers every demo type and namespace in a new type set.
func Catalog() (*glimpse.TypeSet, error) {
	set := glimpse.NewTypeSet()
	for _, register := range []func(*glimpse.TypeSet) error{
		glimpse.Register[Hero],
		glimpse.Register[Pool[string]],
	} {
		if err := register(set); err != nil {
			return nil, err
		}
	}

	set.AddStatic(reflect.TypeFor[Stats](), marker.Processor("hearts", Hearts))
	set.AddStatic(reflect.TypeFor[World](),
		marker.Getter("Ticks", ticks.Load, marker.Update(marker.SegmentTick)),
		marker.Getter("Uptime", func() time.Duration { return time.Since(started).Truncate(time.Second) }),
		marker.Var("Weather", &weather, marker.Update(marker.SegmentManual)),
	)

	set.Annotate(fmt.Sprintf("%s.Pool", reflect.TypeFor[World]().PkgPath()),
		marker.Field("Items", marker.ShowIndex()),
		marker.Field("Cap", marker.Compare(marker.Gt, 0)),
	)
	return set, nil
}

// Targets creates one instance of every instance type.
func Targets() []any {
	return []any{
		NewHero("Aria"),
		&Pool[string]{Items: []string{"potion", "ether"}, Cap: 8},
	}
}
