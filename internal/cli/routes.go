package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/neko233-com/iocrest-go/bootstrap"
	"github.com/neko233-com/iocrest-go/config"
	"github.com/neko233-com/iocrest-go/ioc"
	"github.com/neko233-com/iocrest-go/rest"
)

func newRoutesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "以 TOOL 阶段构建部署并打印路由表",
		RunE: func(cmd *cobra.Command, _ []string) error {
			routes, err := buildRoutes(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			return printRoutes(cmd.OutOrStdout(), routes)
		},
	}
}

// buildRoutes TOOL 阶段不预先创建单例，资源只在请求时创建
func buildRoutes(ctx context.Context, cfg *config.Config) ([]rest.RouteInfo, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	params := cfg.InitParams()
	params[bootstrap.ParamStage] = ioc.StageTool.String()

	sc := &bootstrap.Context{
		InitParams: params,
		Deployment: rest.NewDeployment(rest.WithRootPath(cfg.Server.RootPath)),
	}
	l := bootstrap.NewListener()
	if err := l.ContextInitialized(ctx, sc); err != nil {
		return nil, err
	}
	defer l.ContextDestroyed(ctx, sc)
	return sc.Deployment.Registry().Routes(), nil
}

func printRoutes(w io.Writer, routes []rest.RouteInfo) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "METHOD\tPATTERN\tRESOURCE\tPRODUCES")
	for _, r := range routes {
		produces := r.Produces
		if produces == "" {
			produces = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Method, r.Pattern, r.Resource, produces)
	}
	return tw.Flush()
}
