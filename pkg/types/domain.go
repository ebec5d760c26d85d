package types

// Model is a model artifact discovered on disk. Values are built fresh on
// every scan and never mutated afterwards.
type Model struct {
	// Absolute path of the file or directory.
	// example: /home/user/models/v1-5-pruned.safetensors
	Path string `json:"path" example:"/home/user/models/v1-5-pruned.safetensors"`
	// Base name (file name including extension, or directory name).
	// example: v1-5-pruned.safetensors
	Name string `json:"name" example:"v1-5-pruned.safetensors"`
	// Name with format-specific suffixes removed.
	// example: v1-5-pruned
	FormatIndependentName string `json:"format_independent_name" example:"v1-5-pruned"`
	// Detected container format.
	// example: safetensors
	Format Format `json:"format" swaggertype:"string" example:"safetensors"`
	// Role of the model.
	// example: normal
	Kind Kind `json:"kind" swaggertype:"string" example:"normal"`
	// Optional architecture tag assigned by configuration.
	// example: sd1
	Architecture Architecture `json:"architecture,omitempty" example:"sd1"`
}
