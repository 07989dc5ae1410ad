package camera

// Preset names for the cameras the cone pipelines have run on.
const (
	PresetLimelight = "limelight"
	PresetELP       = "elp"
	PresetLifeCam   = "lifecam"
)

// Presets returns all available preset configurations.
func Presets() map[string]Config {
	return map[string]Config{
		PresetLimelight: LimelightConfig(),
		PresetELP:       ELPConfig(),
		PresetLifeCam:   LifeCamConfig(),
	}
}

// PresetNames returns the list of available preset names.
func PresetNames() []string {
	return []string{
		PresetLimelight,
		PresetELP,
		PresetLifeCam,
	}
}

// GetPreset returns a preset config by name, or nil if not found.
func GetPreset(name string) *Config {
	presets := Presets()
	if cfg, ok := presets[name]; ok {
		return &cfg
	}
	return nil
}

// LimelightConfig returns the Limelight model at its 320 column
// processing resolution.
func LimelightConfig() Config {
	return Config{
		Name:  PresetLimelight,
		FOV:   59.6,
		Width: 320,
	}
}

// ELPConfig returns the 3.6mm ELP USB camera.
// The width includes the one pixel border added around each frame.
func ELPConfig() Config {
	return Config{
		Name:  PresetELP,
		FOV:   54.18,
		Width: 640 + 2,
	}
}

// LifeCamConfig returns the Microsoft LifeCam HD-3000.
func LifeCamConfig() Config {
	return Config{
		Name:  PresetLifeCam,
		FOV:   48.5,
		Width: 640 + 2,
	}
}
