package system

import (
	"context"
	"iter"
	"slices"
	"strings"

	"github.com/praetorian-inc/vantage/internal/pwsh"
	"github.com/praetorian-inc/vantage/internal/registry"
	"github.com/praetorian-inc/vantage/pkg/types"
)

type ScheduledTask struct {
	Name    string `json:"TaskName"`
	Path    string `json:"TaskPath"`
	State   string
	Author  string
	RunAs   string
	Actions string
}

func (ScheduledTask) Shape() types.Shape { return "ScheduledTask" }

const scheduledTasksPipeline = `Get-ScheduledTask | Select-Object TaskName,TaskPath,` +
	`@{n='State';e={[string]$_.State}},Author,` +
	`@{n='RunAs';e={$_.Principal.UserId}},` +
	`@{n='Actions';e={($_.Actions | ForEach-Object { ($_.Execute + ' ' + $_.Arguments).Trim() }) -join '; '}}`

func init() {
	registry.Register(types.Collector{
		Name:        "ScheduledTasks",
		Description: "Scheduled tasks; tasks under \\Microsoft\\ are hidden unless --full is given. Arguments match task names",
		Groups:      []types.Group{types.GroupSystem, types.GroupRemote},
		Remote:      types.RemoteFull,
		Invoke:      invokeScheduledTasks,
	})
}

func invokeScheduledTasks(ctx context.Context, args []string, ec types.ExecutionContext) iter.Seq2[types.Result, error] {
	return types.Results(func() ([]ScheduledTask, error) {
		tasks, err := pwsh.Query[ScheduledTask](ctx, ec.Shell, scheduledTasksPipeline)
		if err != nil {
			return nil, err
		}
		return slices.DeleteFunc(tasks, func(t ScheduledTask) bool {
			return !keepTask(t, args, ec.FilterResults)
		}), nil
	})
}

func keepTask(t ScheduledTask, args []string, filter bool) bool {
	if filter && strings.HasPrefix(strings.ToLower(t.Path), `\microsoft\`) {
		return false
	}
	if len(args) == 0 {
		return true
	}
	name := strings.ToLower(t.Name)
	return slices.ContainsFunc(args, func(a string) bool {
		return strings.Contains(name, strings.ToLower(a))
	})
}
