package main

import (
	"context"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/bobg/subcmd"
	"go.uber.org/zap"
)

func TestSubcmdSignatures(t *testing.T) {
	var (
		ctxType  = reflect.TypeOf((*context.Context)(nil)).Elem()
		argsType = reflect.TypeOf([]string(nil))
		errType  = reflect.TypeOf((*error)(nil)).Elem()
	)

	paramTypes := map[subcmd.Type]reflect.Type{
		subcmd.Bool:     reflect.TypeOf(false),
		subcmd.Int:      reflect.TypeOf(0),
		subcmd.String:   reflect.TypeOf(""),
		subcmd.Duration: reflect.TypeOf(time.Duration(0)),
	}

	c := maincmd{logger: zap.NewNop()}
	for name, sc := range c.Subcmds() {
		t.Run(name, func(t *testing.T) {
			ft := reflect.TypeOf(sc.F)
			if ft.Kind() != reflect.Func {
				t.Fatalf("got %s, want func", ft.Kind())
			}
			if got, want := ft.NumIn(), len(sc.Params)+2; got != want {
				t.Fatalf("got %d args, want %d", got, want)
			}
			if !ctxType.AssignableTo(ft.In(0)) {
				t.Errorf("first arg is %s, want context.Context", ft.In(0))
			}
			for i, p := range sc.Params {
				want, ok := paramTypes[p.Type]
				if !ok {
					t.Fatalf("param %s has unexpected type %v", p.Name, p.Type)
				}
				if got := ft.In(i + 1); got != want {
					t.Errorf("param %s: got %s, want %s", p.Name, got, want)
				}
				if p.Default != nil && reflect.TypeOf(p.Default) != want {
					t.Errorf("param %s: default is %T, want %s", p.Name, p.Default, want)
				}
			}
			if got := ft.In(ft.NumIn() - 1); got != argsType {
				t.Errorf("last arg is %s, want []string", got)
			}
			if ft.NumOut() != 1 || ft.Out(0) != errType {
				t.Errorf("want a single error result")
			}
		})
	}
}

func TestRunParsesFlags(t *testing.T) {
	c := maincmd{logger: zap.NewNop()}

	err := subcmd.Run(context.Background(), c, []string{"token", "-ttl", "1h"})
	if err == nil || !strings.Contains(err.Error(), "missing -sub") {
		t.Errorf("got %v, want missing -sub", err)
	}

	err = subcmd.Run(context.Background(), c, []string{"ingest", "-retries", "0"})
	if err == nil || !strings.Contains(err.Error(), "usage: ingest") {
		t.Errorf("got %v, want usage error", err)
	}

	err = subcmd.Run(context.Background(), c, []string{"sync"})
	if err == nil || !strings.Contains(err.Error(), "no other store") {
		t.Errorf("got %v, want no other store", err)
	}
}
