package components

// Production is attached to structures that train units.
type Production struct {
	InProgress    bool
	BuildTime     float64
	TimeRemaining float64
	ProducedCount int
	MaxUnits      int
	ProductType   SpawnType
	RallyX        float64
	RallyZ        float64
	RallySet      bool
	VillagerCost  int
	Queue         []SpawnType
}

func NewProduction() Production {
	return Production{
		BuildTime:    DefaultBuildTime,
		MaxUnits:     DefaultMaxUnits,
		ProductType:  SpawnArcher,
		VillagerCost: 1,
	}
}

// BuilderProduction tracks a builder placing a construction site.
type BuilderProduction struct {
	InProgress    bool
	SiteX, SiteZ  float64
	BuildTime     float64
	TimeRemaining float64
	ProductType   SpawnType
}
