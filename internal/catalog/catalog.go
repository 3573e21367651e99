// Package catalog holds the static game data tables: commodities, smuggling
// routes, shipping strategies, and the tech tree. Tables are loaded once at
// process start from YAML (an embedded default ships with the binary) and
// are treated as immutable constants by every other package.
package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// CommodityType identifies a tradeable commodity. The set is closed: a
// loaded catalog must define exactly these commodities.
type CommodityType string

const (
	Fentalyte CommodityType = "fentalyte"
	Cocaether CommodityType = "cocaether"
	Methrax   CommodityType = "methrax"
	Herona    CommodityType = "herona"
)

// RouteType identifies a smuggling route.
type RouteType string

const (
	SouthwestMegaport RouteType = "southwest_megaport"
	NorthernCrossing  RouteType = "northern_crossing"
	MaritimeBlueZone  RouteType = "maritime_blue_zone"
	AirFreight        RouteType = "air_freight"
	DroneCorridor     RouteType = "drone_corridor"
	CartelChopper     RouteType = "cartel_chopper"
)

// StrategyType identifies a concealment strategy applied to a shipment.
type StrategyType string

const (
	Standard           StrategyType = "standard"
	Shotgun            StrategyType = "shotgun"
	Decoy              StrategyType = "decoy"
	PremiumConcealment StrategyType = "premium_concealment"
)

// Commodity is one entry in the commodity table.
type Commodity struct {
	ID            CommodityType `yaml:"id" json:"id"`
	Name          string        `yaml:"name" json:"name"`
	Description   string        `yaml:"description" json:"description"`
	BaseCost      float64       `yaml:"base_cost" json:"base_cost"`
	BaseSellPrice float64       `yaml:"base_sell_price" json:"base_sell_price"`
	Volatility    float64       `yaml:"volatility" json:"volatility"`
	RiskProfile   float64       `yaml:"risk_profile" json:"risk_profile"`
	Weight        float64       `yaml:"weight" json:"weight"`
	RequiredLevel int           `yaml:"required_level" json:"required_level"`
	StartingStock int           `yaml:"starting_stock" json:"starting_stock"`
}

// Route is one entry in the route table. A route with RequiredTech set is
// locked until the named tech node is unlocked. Stealth routes skip heat on
// successful delivery and get the flat small-load risk override.
type Route struct {
	ID           RouteType `yaml:"id" json:"id"`
	Name         string    `yaml:"name" json:"name"`
	Description  string    `yaml:"description" json:"description"`
	BaseRisk     float64   `yaml:"base_risk" json:"base_risk"`
	Speed        float64   `yaml:"speed" json:"speed"`
	Stealth      bool      `yaml:"stealth" json:"stealth"`
	RequiredTech string    `yaml:"required_tech" json:"required_tech,omitempty"`
}

// Strategy is one entry in the strategy table. Fee is charged up front at
// launch; RiskFactor multiplies the computed seizure probability.
type Strategy struct {
	ID         StrategyType `yaml:"id" json:"id"`
	Name       string       `yaml:"name" json:"name"`
	Fee        float64      `yaml:"fee" json:"fee"`
	RiskFactor float64      `yaml:"risk_factor" json:"risk_factor"`
}

// TechNode is one node of the upgrade tree. ParentID, when set, names the
// single prerequisite node; the tree is a forest, not a general DAG.
type TechNode struct {
	ID           string    `yaml:"id" json:"id"`
	Name         string    `yaml:"name" json:"name"`
	Description  string    `yaml:"description" json:"description"`
	Cost         float64   `yaml:"cost" json:"cost"`
	ParentID     string    `yaml:"parent_id" json:"parent_id,omitempty"`
	UnlocksRoute RouteType `yaml:"unlocks_route" json:"unlocks_route,omitempty"`
}

// Catalog is the full set of lookup tables. The Order slices preserve the
// file order so iteration is deterministic (the tick engine draws randomness
// in catalog order).
type Catalog struct {
	Commodities map[CommodityType]Commodity
	Routes      map[RouteType]Route
	Strategies  map[StrategyType]Strategy
	TechNodes   map[string]TechNode

	CommodityOrder []CommodityType
	RouteOrder     []RouteType
	StrategyOrder  []StrategyType
	TechOrder      []string
}

// file is the on-disk shape of a catalog.
type file struct {
	Commodities []Commodity `yaml:"commodities"`
	Routes      []Route     `yaml:"routes"`
	Strategies  []Strategy  `yaml:"strategies"`
	TechNodes   []TechNode  `yaml:"tech_nodes"`
}

//go:embed defaults.yaml
var defaultsYAML []byte

// Default returns the catalog built from the embedded default tables.
func Default() *Catalog {
	cat, err := Parse(defaultsYAML)
	if err != nil {
		// The embedded tables are validated by tests; a failure here is a
		// build defect, not a runtime condition.
		panic(fmt.Sprintf("embedded catalog invalid: %v", err))
	}
	return cat
}

// Load reads and validates a catalog from a YAML file.
func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	cat, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cat, nil
}

// Parse builds and validates a catalog from raw YAML.
func Parse(raw []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("unmarshal catalog: %w", err)
	}

	cat := &Catalog{
		Commodities: make(map[CommodityType]Commodity, len(f.Commodities)),
		Routes:      make(map[RouteType]Route, len(f.Routes)),
		Strategies:  make(map[StrategyType]Strategy, len(f.Strategies)),
		TechNodes:   make(map[string]TechNode, len(f.TechNodes)),
	}

	for _, c := range f.Commodities {
		if _, dup := cat.Commodities[c.ID]; dup {
			return nil, fmt.Errorf("duplicate commodity %q", c.ID)
		}
		cat.Commodities[c.ID] = c
		cat.CommodityOrder = append(cat.CommodityOrder, c.ID)
	}
	for _, r := range f.Routes {
		if _, dup := cat.Routes[r.ID]; dup {
			return nil, fmt.Errorf("duplicate route %q", r.ID)
		}
		cat.Routes[r.ID] = r
		cat.RouteOrder = append(cat.RouteOrder, r.ID)
	}
	for _, s := range f.Strategies {
		if _, dup := cat.Strategies[s.ID]; dup {
			return nil, fmt.Errorf("duplicate strategy %q", s.ID)
		}
		cat.Strategies[s.ID] = s
		cat.StrategyOrder = append(cat.StrategyOrder, s.ID)
	}
	for _, n := range f.TechNodes {
		if _, dup := cat.TechNodes[n.ID]; dup {
			return nil, fmt.Errorf("duplicate tech node %q", n.ID)
		}
		cat.TechNodes[n.ID] = n
		cat.TechOrder = append(cat.TechOrder, n.ID)
	}

	if err := cat.validate(); err != nil {
		return nil, err
	}
	return cat, nil
}

// knownCommodities, knownRoutes and knownStrategies close the enumerations:
// every loaded catalog must cover them exactly.
var (
	knownCommodities = []CommodityType{Fentalyte, Cocaether, Methrax, Herona}
	knownRoutes      = []RouteType{SouthwestMegaport, NorthernCrossing, MaritimeBlueZone, AirFreight, DroneCorridor, CartelChopper}
	knownStrategies  = []StrategyType{Standard, Shotgun, Decoy, PremiumConcealment}
)

func (c *Catalog) validate() error {
	for _, id := range knownCommodities {
		if _, ok := c.Commodities[id]; !ok {
			return fmt.Errorf("catalog missing commodity %q", id)
		}
	}
	if len(c.Commodities) != len(knownCommodities) {
		return fmt.Errorf("catalog defines %d commodities, want %d", len(c.Commodities), len(knownCommodities))
	}
	for _, id := range knownRoutes {
		if _, ok := c.Routes[id]; !ok {
			return fmt.Errorf("catalog missing route %q", id)
		}
	}
	if len(c.Routes) != len(knownRoutes) {
		return fmt.Errorf("catalog defines %d routes, want %d", len(c.Routes), len(knownRoutes))
	}
	for _, id := range knownStrategies {
		if _, ok := c.Strategies[id]; !ok {
			return fmt.Errorf("catalog missing strategy %q", id)
		}
	}
	if len(c.Strategies) != len(knownStrategies) {
		return fmt.Errorf("catalog defines %d strategies, want %d", len(c.Strategies), len(knownStrategies))
	}

	for id, comm := range c.Commodities {
		if comm.BaseCost <= 0 || comm.BaseSellPrice <= 0 {
			return fmt.Errorf("commodity %q: costs must be positive", id)
		}
		if comm.Volatility < 0 || comm.Volatility > 1 {
			return fmt.Errorf("commodity %q: volatility %v outside [0,1]", id, comm.Volatility)
		}
		if comm.RiskProfile < 0 || comm.RiskProfile > 1 {
			return fmt.Errorf("commodity %q: risk profile %v outside [0,1]", id, comm.RiskProfile)
		}
		if comm.StartingStock < 0 {
			return fmt.Errorf("commodity %q: negative starting stock", id)
		}
	}

	for id, rt := range c.Routes {
		if rt.BaseRisk < 0 || rt.BaseRisk > 1 {
			return fmt.Errorf("route %q: base risk %v outside [0,1]", id, rt.BaseRisk)
		}
		if rt.Speed <= 0 {
			return fmt.Errorf("route %q: speed must be positive", id)
		}
		if rt.RequiredTech != "" {
			if _, ok := c.TechNodes[rt.RequiredTech]; !ok {
				return fmt.Errorf("route %q: unknown required tech %q", id, rt.RequiredTech)
			}
		}
	}

	for id, st := range c.Strategies {
		if st.Fee < 0 {
			return fmt.Errorf("strategy %q: negative fee", id)
		}
		if st.RiskFactor <= 0 {
			return fmt.Errorf("strategy %q: risk factor must be positive", id)
		}
	}

	for id, n := range c.TechNodes {
		if n.Cost < 0 {
			return fmt.Errorf("tech node %q: negative cost", id)
		}
		if n.ParentID != "" {
			if n.ParentID == id {
				return fmt.Errorf("tech node %q: is its own parent", id)
			}
			if _, ok := c.TechNodes[n.ParentID]; !ok {
				return fmt.Errorf("tech node %q: unknown parent %q", id, n.ParentID)
			}
		}
		if n.UnlocksRoute != "" {
			if _, ok := c.Routes[n.UnlocksRoute]; !ok {
				return fmt.Errorf("tech node %q: unknown route %q", id, n.UnlocksRoute)
			}
		}
	}

	// Parent references must form a forest: walking up from any node has to
	// terminate at a root.
	for id := range c.TechNodes {
		seen := map[string]bool{}
		for cur := id; cur != ""; cur = c.TechNodes[cur].ParentID {
			if seen[cur] {
				return fmt.Errorf("tech node %q: parent cycle through %q", id, cur)
			}
			seen[cur] = true
		}
	}

	return nil
}
