package trainer

// ModelConfig is the architecture the checkpoint is fine-tuned with.
type ModelConfig struct {
	BlockSize    int          `json:"block_size"`
	VocabSize    int          `json:"vocab_size"`
	NLayer       int          `json:"n_layer"`
	NHead        int          `json:"n_head"`
	NEmbd        int          `json:"n_embd"`
	PhinSpecific DomainConfig `json:"phin_specific"`
}

// DomainConfig describes the musical domain of the corpus.
type DomainConfig struct {
	Domain        string   `json:"domain"`
	Instrument    string   `json:"instrument"`
	Styles        []string `json:"styles"`
	Regions       []string `json:"regions"`
	TuningSystems []string `json:"tuning_systems"`
	Applications  []string `json:"applications"`
}

// Model defaults
const (
	DefaultBlockSize = 2048
	DefaultVocabSize = 50257
	DefaultNLayer    = 12
	DefaultNHead     = 12
	DefaultNEmbd     = 768
)

// Training defaults
const (
	DefaultEpochs       = 3
	DefaultBatchSize    = 4
	DefaultLearningRate = 5e-5
	DefaultWarmupSteps  = 100
	DefaultSaveSteps    = 500
	DefaultEvalSteps    = 250
	DefaultDevice       = "auto"
	DefaultLoRARank     = 16
	DefaultLoRAAlpha    = 32
	DefaultLoRADropout  = 0.1
)

// LoRATargetModules are the attention projections adapted by LoRA.
var LoRATargetModules = []string{"q_proj", "v_proj", "k_proj", "o_proj"}

// Options are the parameters of one training run.
type Options struct {
	DataPath     string
	Epochs       int
	BatchSize    int
	LearningRate float64
	WarmupSteps  int
	SaveSteps    int
	EvalSteps    int
	Device       string
	UseLoRA      bool
	LoRARank     int
	LoRAAlpha    int
}

// DefaultOptions returns the options of a LoRA fine-tuning run.
func DefaultOptions() Options {
	return Options{
		Epochs:       DefaultEpochs,
		BatchSize:    DefaultBatchSize,
		LearningRate: DefaultLearningRate,
		WarmupSteps:  DefaultWarmupSteps,
		SaveSteps:    DefaultSaveSteps,
		EvalSteps:    DefaultEvalSteps,
		Device:       DefaultDevice,
		UseLoRA:      true,
		LoRARank:     DefaultLoRARank,
		LoRAAlpha:    DefaultLoRAAlpha,
	}
}

// Args is the content of training_config.json.
type Args struct {
	ModelName    string  `json:"model_name"`
	DataPath     string  `json:"data_path"`
	OutputDir    string  `json:"output_dir"`
	Epochs       int     `json:"epochs"`
	BatchSize    int     `json:"batch_size"`
	LearningRate float64 `json:"learning_rate"`
	WarmupSteps  int     `json:"warmup_steps"`
	SaveSteps    int     `json:"save_steps"`
	EvalSteps    int     `json:"eval_steps"`
	Device       string  `json:"device"`

	UseLoRA           bool     `json:"use_lora,omitempty"`
	LoRARank          int      `json:"lora_r,omitempty"`
	LoRAAlpha         int      `json:"lora_alpha,omitempty"`
	LoRADropout       float64  `json:"lora_dropout,omitempty"`
	LoRATargetModules []string `json:"lora_target_modules,omitempty"`

	Model ModelConfig `json:"model_config"`
}

// Completion is the content of training_completed.json.
type Completion struct {
	Status       string `json:"status"`
	ModelPath    string `json:"model_path"`
	TrainingArgs Args   `json:"training_args"`
	Timestamp    string `json:"timestamp"`
}
