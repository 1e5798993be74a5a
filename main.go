/*
anima-texarray builds texture 2D arrays from equally sized images, cooks
their mip chains and stores them as .t2da archives. With -watch it keeps
the arrays in sync with their source images until interrupted.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/anima/engine"
	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/renderer/metadata"
)

var (
	configPath = flag.String("config", "anima.toml", "Configuration file")
	envPath    = flag.String("env", ".env", "Environment overrides file")
	assetsDir  = flag.String("assets", "", "Directory to watch for source image changes")
	name       = flag.String("name", "", "Name of the texture array, defaults to <first image>_2DArray")
	outDir     = flag.String("o", ".", "Output directory of the archive")
	load       = flag.String("load", "", "Load an existing archive instead of building one")
	cooked     = flag.Bool("cooked", true, "Store cooked mips in the archive")
	noMips     = flag.Bool("nomips", false, "Cook only the top mip")
	linear     = flag.Bool("linear", false, "Treat the images as linear color")
	lodGroup   = flag.String("group", "World", "Texture group")
	watch      = flag.Bool("watch", false, "Keep running and rebuild arrays when their sources change")
)

func main() {
	flag.Parse()

	if *load == "" && flag.NArg() == 0 {
		flag.PrintDefaults()
		os.Exit(2)
	}

	e, err := engine.New(&engine.ApplicationConfig{
		Name:       "anima-texarray",
		ConfigPath: *configPath,
		EnvPath:    *envPath,
		AssetsDir:  *assetsDir,
	})
	if err != nil {
		core.LogError("%v", err)
		os.Exit(1)
	}
	if err := e.Initialize(); err != nil {
		core.LogError("%v", err)
		os.Exit(1)
	}

	if err := run(e); err != nil {
		core.LogError("%v", err)
		_ = e.Shutdown()
		os.Exit(1)
	}
	if err := e.Shutdown(); err != nil {
		core.LogError("%v", err)
		os.Exit(1)
	}
}

func run(e *engine.Engine) error {
	if *load != "" {
		ta, err := e.LoadTextureArray(*load)
		if err != nil {
			return err
		}
		fmt.Println(ta.Desc())
		for k, v := range ta.AssetRegistryTags() {
			fmt.Printf("  %s: %s\n", k, v)
		}
	} else {
		settings := metadata.DefaultTextureArraySettings()
		settings.SRGB = !*linear
		settings.LODGroup = *lodGroup
		settings.NeverStream = true
		if *noMips {
			settings.MipGenSettings = metadata.MipGenNoMipmaps
		}
		ta, err := e.BuildTextureArray(*name, flag.Args(), settings)
		if err != nil {
			return err
		}
		path, err := e.SaveTextureArray(ta, *outDir, *cooked)
		if err != nil {
			return err
		}
		fmt.Printf("%s -> %s (%d bytes resident)\n", ta.Desc(), path, ta.CalcTextureMemorySizeEnum(metadata.TextureMipCountResident))
	}

	if !*watch {
		return nil
	}

	// signal channel to capture system calls
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer stop()
	core.LogInfo("watching '%s' for source changes", *assetsDir)
	return e.Run(ctx)
}
