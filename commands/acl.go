package commands

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/GoCodeAlone/redishandles/metadata"
	"github.com/redis/go-redis/v9"
)

// WriteCategory is the ACL category of commands that modify data.
const WriteCategory = "write"

// CategoryLister lists the command names in an ACL category.
type CategoryLister interface {
	Category(ctx context.Context, category string) ([]string, error)
}

// Doer sends raw commands. *redis.Client and *redis.ClusterClient satisfy it.
type Doer interface {
	Do(ctx context.Context, args ...interface{}) *redis.Cmd
}

type aclCategory struct{ d Doer }

// ACLCategory lists categories with ACL CAT on d.
func ACLCategory(d Doer) CategoryLister { return aclCategory{d: d} }

func (a aclCategory) Category(ctx context.Context, category string) ([]string, error) {
	names, err := a.d.Do(ctx, "ACL", "CAT", category).StringSlice()
	if err != nil {
		return nil, fmt.Errorf("commands: acl cat %s: %w", category, err)
	}
	return names, nil
}

// Names returns the upper-cased method names, in order.
func Names(methods []metadata.MethodInfo) []string {
	out := make([]string, len(methods))
	for i, m := range methods {
		out[i] = strings.ToUpper(m.Name)
	}
	return out
}

// WriteMethods keeps the methods whose upper-cased name is a command of the
// server's write category, sorted by name.
func WriteMethods(ctx context.Context, lister CategoryLister, methods []metadata.MethodInfo) ([]metadata.MethodInfo, error) {
	cmds, err := lister.Category(ctx, WriteCategory)
	if err != nil {
		return nil, err
	}

	write := make(map[string]bool, len(cmds))
	for _, c := range cmds {
		write[strings.ToUpper(c)] = true
	}

	var out []metadata.MethodInfo
	for _, m := range methods {
		if write[strings.ToUpper(m.Name)] {
			out = append(out, m)
		}
	}
	slices.SortStableFunc(out, func(a, b metadata.MethodInfo) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out, nil
}
