package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/ytget/phin/internal/dataset"
	"github.com/ytget/phin/internal/trainer"
)

// DefaultModelDirName is the directory below the dataset directory training
// output goes to.
const DefaultModelDirName = "phin_model"

func newTrainCommand(a *app) *cobra.Command {
	var (
		checkpoint  string
		output      string
		command     string
		printConfig bool
		opts        = trainer.DefaultOptions()
	)

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Fine-tune a pretrained checkpoint on the phin corpus",
		Long: `Write the training configuration for the checkpoint and, when a trainer
command is configured, run it. The command is split like a shell command line;
the arguments {config}, {data}, {output}, {checkpoint} and {epochs} are
replaced before it runs. Without training data the synthetic seed corpus
is used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if checkpoint == "" {
				checkpoint = a.settings.Checkpoint
			}
			if output == "" {
				output = filepath.Join(a.datasetDir(), DefaultModelDirName)
			}
			if !cmd.Flags().Changed("command") {
				command = a.settings.TrainerCommand
			}
			if opts.DataPath == "" {
				opts.DataPath = a.datasetPath("", dataset.LitGPTFileName)
			}

			t, err := trainer.New(checkpoint, output)
			if err != nil {
				return err
			} else if err = t.SetCommand(command); err != nil {
				return err
			}

			if printConfig {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(t.Configure())
			}

			modelPath, err := t.Train(cmd.Context(), opts)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Model saved to %s\n", modelPath)
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&checkpoint, "checkpoint", "", "pretrained checkpoint (default from settings)")
	fl.StringVarP(&output, "output", "o", "", "training output directory")
	fl.StringVar(&opts.DataPath, "data", "", "JSONL training corpus")
	fl.IntVar(&opts.Epochs, "epochs", opts.Epochs, "number of epochs")
	fl.IntVar(&opts.BatchSize, "batch-size", opts.BatchSize, "batch size")
	fl.Float64Var(&opts.LearningRate, "learning-rate", opts.LearningRate, "learning rate")
	fl.StringVar(&opts.Device, "device", opts.Device, "device to train on")
	fl.BoolVar(&opts.UseLoRA, "lora", opts.UseLoRA, "fine-tune LoRA adapters instead of the full model")
	fl.IntVar(&opts.LoRARank, "lora-r", opts.LoRARank, "LoRA rank")
	fl.IntVar(&opts.LoRAAlpha, "lora-alpha", opts.LoRAAlpha, "LoRA alpha")
	fl.StringVar(&command, "command", "", "external trainer command (default from settings)")
	fl.BoolVar(&printConfig, "print-config", false, "print the model configuration and exit")

	return cmd
}
