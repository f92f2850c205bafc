package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/chrissnell/meshview/internal/app"
	"github.com/chrissnell/meshview/internal/log"
	"github.com/chrissnell/meshview/pkg/config"
	"github.com/chrissnell/meshview/pkg/raster"
)

const version = "1.0-" + runtime.GOOS + "/" + runtime.GOARCH

const usage = `Usage: meshview <command> [flags]

Commands:
  info             print mesh and dataset statistics
  rasterize        render a mesh field to a PNG image
  cross-section    sample a field along GeoJSON paths
  surface-section  plot a dataset over distance and time along GeoJSON paths
  serve            run the REST server
  download-data    fetch the sample data files listed in the config

Run 'meshview <command> -h' for the flags of a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "-version", "--version", "version":
		fmt.Printf("meshview %s\n", version)
		os.Exit(0)
	case "-h", "--help", "help":
		fmt.Print(usage)
		os.Exit(0)
	}

	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	debug := fs.Bool("debug", false, "Turn on debugging output")

	var run func() error
	switch cmd {
	case "info":
		opts := meshFlags(fs)
		run = func() error { return app.Info(os.Stdout, *opts) }
	case "rasterize":
		opts := app.RasterizeOptions{}
		mo := meshFlags(fs)
		fs.StringVar(&opts.Out, "out", "", "Output PNG file")
		fs.IntVar(&opts.Width, "width", 0, "Image width in pixels (0 fits the mesh aspect ratio)")
		fs.IntVar(&opts.Height, "height", 0, "Image height in pixels (0 fits the mesh aspect ratio)")
		fs.StringVar(&opts.Colormap, "cmap", raster.DefaultColormap, "Colormap name")
		fs.StringVar(&opts.Agg, "agg", string(raster.AggLinear), "Aggregation for overlapping triangles: linear, max or mean")
		fs.IntVar(&opts.Scale, "scale", 1, "Rasterize at 1/scale of the image size and upsample bilinearly")
		run = func() error {
			opts.MeshOptions = *mo
			return app.Rasterize(opts)
		}
	case "cross-section", "surface-section":
		opts := app.SectionOptions{}
		mo := meshFlags(fs)
		fs.StringVar(&opts.PathFile, "path", "", "GeoJSON file with LineString paths")
		fs.StringVar(&opts.Out, "out", "", "Output PNG plot")
		fs.Float64Var(&opts.Resolution, "resolution", 0, "Sample spacing in map units (0 uses 1/200 of the mesh extent)")
		fs.StringVar(&opts.Agg, "agg", string(raster.AggLinear), "Aggregation for overlapping triangles: linear, max or mean")
		if cmd == "cross-section" {
			fs.StringVar(&opts.CSV, "csv", "", "Also write the samples to this CSV file")
			fs.IntVar(&opts.Smooth, "smooth", 0, "Median filter kernel size for the profiles (odd, 0 disables)")
			run = func() error {
				opts.MeshOptions = *mo
				return app.CrossSection(os.Stdout, opts)
			}
		} else {
			fs.StringVar(&opts.Colormap, "cmap", raster.DefaultColormap, "Colormap name")
			run = func() error {
				opts.MeshOptions = *mo
				return app.SurfaceSection(opts)
			}
		}
	case "serve":
		cfgFile := fs.String("config", "meshview.yaml", "Path to the YAML configuration file")
		run = func() error {
			cfgData, err := loadConfig(*cfgFile)
			if err != nil {
				return err
			}
			return app.New(cfgData, log.GetSugaredLogger()).Run(context.Background())
		}
	case "download-data":
		cfgFile := fs.String("config", "meshview.yaml", "Path to the YAML configuration file")
		dir := fs.String("dir", "data", "Directory to download into")
		run = func() error {
			cfgData, err := loadConfig(*cfgFile)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			client := &http.Client{Timeout: 30 * time.Minute}
			return app.DownloadData(ctx, client, cfgData.Downloads, *dir, log.Named("download"))
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}

	fs.Parse(args)

	// Set up logging
	if err := log.Init(*debug); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(); err != nil {
		log.Errorf("%s: %v", cmd, err)
		log.Sync()
		os.Exit(1)
	}
}

// meshFlags registers the flags shared by the offline commands
func meshFlags(fs *flag.FlagSet) *app.MeshOptions {
	opts := &app.MeshOptions{}
	fs.StringVar(&opts.Mesh, "mesh", "", "AdH .3dm mesh file")
	fs.StringVar(&opts.Dataset, "dataset", "", "mesh2d dataset file (omit to use mesh depth)")
	fs.StringVar(&opts.Projection, "projection", "", "Coordinate conversion: none, wgs84-to-mercator or mercator-to-wgs84")
	fs.IntVar(&opts.Step, "step", 0, "Timestep index")
	fs.IntVar(&opts.Column, "column", -1, "Dataset column (-1 uses the magnitude of vector datasets)")
	return opts
}

func loadConfig(cfgFile string) (*config.ConfigData, error) {
	filename, _ := filepath.Abs(cfgFile)

	var provider config.ConfigProvider = config.NewYAMLProvider(filename)
	defer provider.Close()

	cfgData, err := provider.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error reading config file. Did you pass the -config flag? Run with -h for help: %w", err)
	}

	return cfgData, nil
}
