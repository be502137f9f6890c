package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	demo "github.com/km-arc/go-webbeans/app"
	"github.com/km-arc/go-webbeans/framework/annotated"
	"github.com/km-arc/go-webbeans/framework/app"
	"github.com/km-arc/go-webbeans/framework/errors"
	"github.com/km-arc/go-webbeans/framework/portable"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
)

func main() {
	if err := rootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	var envFiles []string

	root := &cobra.Command{
		Use:           "webbeans",
		Short:         "Deploy and inspect the demo bean archive",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringSliceVar(&envFiles, "env", nil, "env files to load (default .env)")

	root.AddCommand(&cobra.Command{
		Use:   "deploy",
		Short: "Deploy the demo archive and print a report",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := deploy(envFiles)
			if err != nil {
				return err
			}
			defer a.Shutdown()

			return a.Manager().FireEvent(demo.OrderPlaced{ID: "o-1", Customer: "Ada"})
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Deploy the demo archive and serve the inspection API on APP_PORT",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := deploy(envFiles)
			if err != nil {
				return err
			}
			defer a.Shutdown()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			fmt.Printf("%s inspection API on http://localhost:%s %s\n",
				green("➜"), a.Config().App.Port, gray("[/beans /observers /report /metrics]"))
			return a.Run(ctx)
		},
	})

	root.SetContext(context.Background())
	return root
}

// deploy builds the application and deploys the demo archive, printing the
// outcome.
func deploy(envFiles []string) (*app.Application, error) {
	a, err := app.New(envFiles...)
	if err != nil {
		fmt.Println(red("✗"), err)
		return nil, err
	}
	if err := install(a, demo.Extensions(), demo.Archive()); err != nil {
		return nil, err
	}
	return a, nil
}

// install registers exts and deploys types. On failure a is shut down.
func install(a *app.Application, exts []portable.Extension, types []*annotated.Type) error {
	if err := a.Register(exts...); err != nil {
		fmt.Println(red("✗"), "extension registration failed:", err)
		a.Shutdown()
		return err
	}

	err := a.Deploy(types...)
	printReport(a, err)
	if err != nil {
		a.Shutdown()
		return err
	}
	return nil
}

func printReport(a *app.Application, err error) {
	r := a.Report()
	fmt.Printf("%s %s %s\n", bold("deployment"), a.Context().ID, gray("("+r.Duration.String()+")"))
	fmt.Printf("  types        %d\n", r.Types)
	fmt.Printf("  beans        %d\n", r.Beans)
	fmt.Printf("  decorators   %d\n", r.Decorators)
	fmt.Printf("  interceptors %d\n", r.Interceptors)
	fmt.Printf("  observers    %d\n", r.Observers)
	if len(r.Skipped) > 0 {
		fmt.Printf("  %s      %s\n", yellow("skipped"), strings.Join(r.Skipped, ", "))
	}

	if err == nil {
		fmt.Println(green("✓"), "deployed")
		return
	}
	fmt.Println(red("✗"), "deployment failed")
	var de *errors.DeploymentError
	if errors.As(err, &de) && len(de.Causes) > 0 {
		fmt.Println("  " + de.Message)
		for _, cause := range de.Causes {
			fmt.Println("   ", red("•"), cause)
		}
		return
	}
	fmt.Println("   ", red("•"), err)
}
