package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rescale/appendix-client/internal/api"
	"github.com/rescale/appendix-client/internal/config"
	"github.com/rescale/appendix-client/internal/constants"
	inthttp "github.com/rescale/appendix-client/internal/http"
	"github.com/rescale/appendix-client/internal/logging"
	"github.com/rescale/appendix-client/internal/progress"
	"github.com/rescale/appendix-client/internal/selection"
	"github.com/rescale/appendix-client/internal/sink"
	"github.com/rescale/appendix-client/internal/submit"
	"github.com/rescale/appendix-client/internal/uiloop"
)

// newGenerateCmd creates the 'generate' command.
func newGenerateCmd() *cobra.Command {
	var (
		dir     string
		width   float64
		paper   string
		format  string
		caption string
		output  string
	)

	cmd := &cobra.Command{
		Use:     "generate [image...]",
		Aliases: []string{"gen"},
		Short:   "Generate an appendix document from images",
		Long: `Upload images to the generator and save the returned document.

Images come from the arguments (glob patterns are expanded even when quoted)
and from --dir. Document settings default to the [document] section of the
config file.

Output destinations:
  (empty)                              ~/Downloads
  ./out, file:///tmp/out               local directory, never overwrites
  s3://bucket/prefix                   S3 (credentials from the AWS chain)
  azblob://account/container/prefix    Azure Blob Storage (APPENDIX_AZURE_SAS)

Examples:
  appendix-client generate fig1.png fig2.png
  appendix-client generate "plots/*.png" --width 12.5 --format pdf
  appendix-client generate --dir ./screenshots --output s3://reports/appendices`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && dir == "" {
				return errors.New("no images given: pass files or --dir")
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("width") {
				cfg.Document.ImageWidth = width
			}
			if flags.Changed("paper-size") {
				cfg.Document.PaperSize = paper
			}
			if flags.Changed("format") {
				cfg.Document.OutputFormat = format
			}
			if flags.Changed("caption") {
				cfg.Document.CaptionPosition = caption
			}
			if flags.Changed("output") {
				cfg.Output.Destination = output
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			if err := promptProxyPassword(cfg); err != nil {
				return err
			}

			files, err := collectFiles(args, dir)
			if err != nil {
				return err
			}
			log := GetLogger()
			for _, f := range files {
				if !selection.IsImage(f.Name) {
					log.Warn().Str("file", f.Name).Msg("Not a recognized image type, sending anyway")
				}
			}

			_, err = runGenerate(GetContext(), cfg, files, cmd.OutOrStdout(), cmd.ErrOrStderr(), log)
			return err
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Add every image in this directory")
	cmd.Flags().Float64VarP(&width, "width", "w", constants.DefaultImageWidth, "Image width in cm (8-20, step 0.5)")
	cmd.Flags().StringVar(&paper, "paper-size", constants.DefaultPaperSize, "Paper size: A4, Letter, Legal")
	cmd.Flags().StringVarP(&format, "format", "f", constants.DefaultOutputFormat, "Output format: docx, pdf")
	cmd.Flags().StringVar(&caption, "caption", constants.DefaultCaptionPosition, "Caption position: top, bottom")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Where to save the document (directory, s3:// or azblob:// URL)")

	return cmd
}

// collectFiles loads the arguments then the directory, in that order.
func collectFiles(patterns []string, dir string) ([]selection.File, error) {
	files, err := selection.LoadFiles(patterns)
	if err != nil {
		return nil, err
	}
	if dir != "" {
		more, err := selection.LoadImagesInDir(dir)
		if err != nil {
			return nil, err
		}
		if len(more) == 0 {
			return nil, fmt.Errorf("no images found in %s", dir)
		}
		files = append(files, more...)
	}
	return files, nil
}

// runGenerate drives one submission through the same selection manager and
// controller the GUI uses, with a terminal control standing in for the
// button. It returns once the outcome is settled; the display reversion is
// cancelled since the process is about to exit.
func runGenerate(ctx context.Context, cfg *config.Config, files []selection.File, out, errOut io.Writer, log *logging.Logger) (submit.Success, error) {
	httpClient, err := inthttp.CreateOptimizedClient(cfg)
	if err != nil {
		return submit.Success{}, fmt.Errorf("failed to configure HTTP client: %w", err)
	}

	downloader, err := sink.Open(ctx, cfg.Output.Destination, sink.Options{
		HTTPClient: httpClient,
		S3: sink.S3Options{
			Region:   cfg.Output.S3Region,
			Endpoint: cfg.Output.S3Endpoint,
		},
		AzureSAS: cfg.Output.AzureSAS,
	})
	if err != nil {
		return submit.Success{}, fmt.Errorf("failed to open output destination: %w", err)
	}

	spinner := progress.NewSpinner(errOut)
	client, err := api.NewClient(cfg, api.Options{
		HTTPClient: httpClient,
		Logger:     log,
		Progress:   spinner,
	})
	if err != nil {
		return submit.Success{}, err
	}

	loop := uiloop.New(constants.UILoopQueueSize)
	loop.Start()
	defer loop.Stop()

	manager := selection.NewManager(terminalView{w: out}, nil, log)
	settled := make(chan submit.Outcome, 1)

	doc := cfg.Document
	controller, err := submit.NewController(submit.Options{
		Files: manager,
		Form: func() submit.Form {
			return submit.Form{
				ImageWidth:      doc.ImageWidth,
				PaperSize:       doc.PaperSize,
				OutputFormat:    doc.OutputFormat,
				CaptionPosition: doc.CaptionPosition,
			}
		},
		Transport:  client,
		Downloader: downloader,
		Control:    newTerminalControl(out, spinner),
		Dispatcher: loop,
		Logger:     log,
		OnSettled: func(o submit.Outcome) {
			settled <- o
		},
	})
	if err != nil {
		return submit.Success{}, err
	}

	log.Debug().Str("url", client.UploadURL()).Int("files", len(files)).Msg("Starting submission")

	var submitErr error
	loop.Call(func() {
		manager.OnPick(files)
		submitErr = controller.Submit(ctx)
	})
	if submitErr != nil {
		return submit.Success{}, submitErr
	}

	outcome := <-settled
	loop.Call(controller.Shutdown)

	switch o := outcome.(type) {
	case submit.Success:
		fmt.Fprintf(out, "Saved %s (%d bytes)\n", o.Location, o.Size)
		return o, nil
	case submit.Failure:
		return submit.Success{}, o
	default:
		return submit.Success{}, fmt.Errorf("unexpected outcome %T", outcome)
	}
}
