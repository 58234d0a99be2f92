package model

// ProtonationSettings holds the pH window handed to the protonation generator.
type ProtonationSettings struct {
	MinPH    float64
	MaxPH    float64
	StdDevPH float64
}

// StageConfig is the immutable configuration passed to one generator call.
type StageConfig struct {
	Stage        string
	Protonation  ProtonationSettings
	MaxKeep      int
	Thoroughness int
	SecondEmbed  bool
}

// WorkItem pairs the variant to expand with the stage configuration. It is
// the atomic unit of dispatch.
type WorkItem struct {
	ContainerID int
	Name        string
	Input       Variant
	Config      StageConfig
}
