package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/arikkfir/argschema"
	"gopkg.in/yaml.v3"
)

type Dataset string

const (
	Omniglot Dataset = "omniglot"
	MNIST    Dataset = "mnist"
)

func (Dataset) EnumValues() []string {
	return []string{string(Omniglot), string(MNIST)}
}

type Options struct {
	Dataset Dataset            `default:"omniglot" desc:"Dataset to load." yaml:"dataset"`
	Save    argschema.FilePath `default:"./save/proto-1" env:"DEMO_SAVE" desc:"Checkpoint directory." yaml:"save"`
	Cuda    bool               `default:"true" desc:"Run on the GPU." yaml:"cuda"`
}

type Train struct {
	Options      Options `yaml:"options"`
	Epochs       int     `default:"100" desc:"Number of epochs to train." yaml:"epochs"`
	LearningRate float64 `default:"0.001" value-name:"RATE" yaml:"learning_rate"`
	Ways         []int   `default:"5,20" nargs:"+" desc:"Number of classes per episode." yaml:"ways"`
}

func (Train) Describe() string {
	return "Train a prototypical network."
}

func (t Train) Run(context.Context) error {
	return printYAML(t)
}

type Evaluate struct {
	Options    Options            `yaml:"options"`
	Checkpoint argschema.FilePath `positional:"true" desc:"Checkpoint to evaluate." yaml:"checkpoint"`
	Shots      []int              `default:"1,5" yaml:"shots"`
}

func (Evaluate) SelectorName() string {
	return "eval"
}

func (Evaluate) Describe() string {
	return "Evaluate a trained checkpoint."
}

func (e Evaluate) Run(context.Context) error {
	return printYAML(e)
}

type Command interface {
	argschema.Action
}

type Args struct {
	Seed    int     `default:"0" env:"DEMO_SEED" desc:"Random seed."`
	Command Command `desc:"Command to run."`
}

func printYAML(v any) error {
	b, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed rendering configuration: %w", err)
	}
	_, err = os.Stdout.Write(b)
	return err
}

func main() {
	envVars := argschema.EnvVarsArrayToMap(os.Environ())

	level := slog.LevelInfo
	if _, ok := envVars["DEMO_DEBUG"]; ok {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	schema, err := argschema.SchemaOf[Args](argschema.WithVariant[Command](Train{}, Evaluate{}))
	if err != nil {
		logger.Error("Invalid arguments schema", "err", err)
		os.Exit(int(argschema.ExitCodeError))
	}
	p, err := argschema.Compile(
		argschema.NestedOf(schema),
		argschema.WithProgramName("argschema-demo"),
		argschema.WithDescription("Few-shot learning experiments."),
		argschema.WithLogger(logger),
	)
	if err != nil {
		logger.Error("Invalid arguments schema", "err", err)
		os.Exit(int(argschema.ExitCodeError))
	}

	_, exitCode := argschema.Execute(os.Stdout, p, os.Args[1:], envVars)
	os.Exit(int(exitCode))
}
