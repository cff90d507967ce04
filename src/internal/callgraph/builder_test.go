package callgraph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VectorBits/Reentry/src/internal/astparser"
	at "github.com/VectorBits/Reentry/src/internal/astparser/asttest"
	"github.com/VectorBits/Reentry/src/internal/callgraph"
	"github.com/VectorBits/Reentry/src/internal/model"
)

func graphOf(t *testing.T, contracts ...at.Node) *callgraph.Graph {
	t.Helper()
	p, err := model.Build([]*astparser.ParsedSource{at.Source("contracts/Test.sol", contracts...)})
	require.NoError(t, err)
	return callgraph.Build(p)
}

func fnOf(t *testing.T, g *callgraph.Graph, contract, name string) *model.Function {
	t.Helper()
	f := g.FindFunction(contract, name)
	require.NotNil(t, f, "%s.%s", contract, name)
	return f
}

func pub(name string, stmts ...at.Node) at.Node {
	return at.Function(name, "public", nil, at.Block(stmts...))
}

func TestEdgeKinds(t *testing.T) {
	g := graphOf(t,
		at.Interface("IHook", at.Function("onCall", "external", nil, nil)),
		at.Contract("H1", []string{"IHook"}, at.Function("onCall", "external", nil, at.Block())),
		at.Contract("H2", []string{"IHook"}, at.Function("onCall", "external", nil, at.Block())),
		at.Contract("Token", nil, at.Function("transfer", "external", nil, at.Block())),
		at.Contract("Base", nil, at.Virtual(pub("hook"))),
		at.Contract("Vault", []string{"Base"},
			at.StateVar("token", "contract Token"),
			at.StateVar("hooks", "contract IHook"),
			at.Function("_credit", "internal", nil, at.Block()),
			at.Override(pub("hook", at.Expr(at.Call(at.Member(at.Ident("super", "type(contract super Vault)"), "hook", "function ()"))))),
			pub("internalCall", at.Expr(at.InternalCall("_credit"))),
			pub("concrete", at.Expr(at.ExternalCall("token", "contract Token", "transfer"))),
			pub("fanOut", at.Expr(at.ExternalCall("hooks", "contract IHook", "onCall"))),
			pub("unknown", at.Expr(at.ExternalCall("oracle", "contract IOracle", "price"))),
			pub("lowLevel", at.Expr(at.LowLevelCall(at.MsgSender(), at.Lit("1")))),
			pub("builtins",
				at.Expr(at.Call(at.Ident("require", "function (bool) pure"), at.Lit("true"))),
				at.Emit(at.Call(at.Ident("Paid", "function (address)"), at.MsgSender())),
			),
		),
	)

	type want struct {
		target string
		kind   callgraph.Kind
		conf   callgraph.Confidence
	}
	tests := []struct {
		fn    string
		edges []want
		state bool
	}{
		{"internalCall", []want{{"Vault._credit", callgraph.KindInternal, callgraph.Confirmed}}, false},
		{"hook", []want{{"Base.hook", callgraph.KindInherited, callgraph.Confirmed}}, false},
		{"concrete", []want{{"Token.transfer", callgraph.KindCrossContract, callgraph.Confirmed}}, true},
		{"fanOut", []want{
			{"H1.onCall", callgraph.KindCrossContract, callgraph.InterfaceAmbiguous},
			{"H2.onCall", callgraph.KindCrossContract, callgraph.InterfaceAmbiguous},
		}, true},
		{"unknown", []want{{"EXTERNAL:IOracle.price", callgraph.KindExternal, callgraph.Unknown}}, false},
		{"lowLevel", []want{{"EXTERNAL:address.call", callgraph.KindExternal, callgraph.Unknown}}, false},
		{"builtins", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.fn, func(t *testing.T) {
			edges := g.Callees(fnOf(t, g, "Vault", tt.fn))
			var got []want
			for _, e := range edges {
				got = append(got, want{e.TargetID(), e.Kind, e.Confidence})
				assert.Equal(t, tt.state, e.ReceiverIsState, e.String())
			}
			assert.Equal(t, tt.edges, got)
		})
	}

	fan := g.Callees(fnOf(t, g, "Vault", "fanOut"))
	require.Len(t, fan, 2)
	assert.Equal(t, "IHook", fan[0].ViaInterface)
	assert.Same(t, fan[0].Site, fan[1].Site, "one call site")
	assert.Len(t, g.Site(fan[0].Site), 2)
	assert.Equal(t, 1, g.ExternalCalls(fnOf(t, g, "Vault", "fanOut")))
}

func TestInternalCallDispatchesToMostDerived(t *testing.T) {
	g := graphOf(t,
		at.Contract("A", nil, at.Virtual(at.Function("_hook", "internal", nil, at.Block()))),
		at.Contract("B", []string{"A"},
			at.Override(at.Function("_hook", "internal", nil, at.Block())),
			pub("run", at.Expr(at.InternalCall("_hook"))),
		),
	)
	edges := g.Callees(fnOf(t, g, "B", "run"))
	require.Len(t, edges, 1)
	assert.Equal(t, "B._hook", edges[0].TargetID())
	assert.Len(t, g.Callers(fnOf(t, g, "B", "_hook")), 1)
	assert.Empty(t, g.Callers(fnOf(t, g, "A", "_hook")))
}

func TestIndirectCalls(t *testing.T) {
	encode := func(encoder string, arg at.Node) at.Node {
		return at.Expr(at.Call(at.Member(at.Ident("abi", "abi"), encoder, "function () pure returns (bytes memory)"), arg))
	}
	g := graphOf(t, at.Contract("Router", nil,
		at.Function("withdraw", "public", []at.Node{at.Param("amount", "uint256")}, at.Block()),
		at.Function("_secret", "internal", nil, at.Block()),
		pub("bySignature", encode("encodeWithSignature", at.Lit("withdraw(uint256)"))),
		pub("bySelector", encode("encodeWithSelector", at.Lit("0x2e1a7d4d"))),
		pub("byName", encode("encodeCall", at.Member(at.Ident("this", "contract Router"), "withdraw", "function (uint256) external"))),
		pub("internalOnly", encode("encodeCall", at.Ident("_secret", "function ()"))),
		pub("noMatch", encode("encodeWithSignature", at.Lit("nope()"))),
	))

	tests := []struct {
		fn     string
		target string
		conf   callgraph.Confidence
	}{
		{"bySignature", "Router.withdraw", callgraph.Confirmed},
		{"bySelector", "Router.withdraw", callgraph.Confirmed},
		{"byName", "Router.withdraw", callgraph.Confirmed},
		{"internalOnly", "EXTERNAL:calldata._secret", callgraph.Unknown},
		{"noMatch", "EXTERNAL:calldata." + model.Selector("nope()"), callgraph.Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.fn, func(t *testing.T) {
			edges := g.Callees(fnOf(t, g, "Router", tt.fn))
			require.Len(t, edges, 1)
			assert.Equal(t, callgraph.KindIndirect, edges[0].Kind)
			assert.Equal(t, tt.target, edges[0].TargetID())
			assert.Equal(t, tt.conf, edges[0].Confidence)
		})
	}
}

func TestUnresolvedInternalCallIsDiagnosed(t *testing.T) {
	g := graphOf(t, at.Contract("A", nil, pub("f", at.Expr(at.InternalCall("missing")))))
	edges := g.Callees(fnOf(t, g, "A", "f"))
	require.Len(t, edges, 1)
	assert.False(t, edges[0].Resolved())
	assert.Equal(t, callgraph.Unknown, edges[0].Confidence)
	require.Len(t, g.Diagnostics, 1)
	assert.ErrorIs(t, g.Diagnostics[0], model.ErrMalformedModel)
}

func TestCallbackPath(t *testing.T) {
	g := graphOf(t,
		at.Contract("Token", nil,
			at.StateVar("vault", "contract Vault"),
			at.StateVar("supply", "uint256"),
			at.Function("transfer", "external", nil, at.Block(
				at.Expr(at.SetVar("supply", "uint256", at.Lit("0"))),
				at.Expr(at.ExternalCall("vault", "contract Vault", "credit")),
			)),
		),
		at.Contract("Vault", nil,
			at.StateVar("token", "contract Token"),
			at.StateVar("balance", "uint256"),
			at.Function("credit", "external", nil, at.Block(at.Expr(at.SetVar("balance", "uint256", at.Lit("1"))))),
			pub("withdraw", at.Expr(at.ExternalCall("token", "contract Token", "transfer"))),
			pub("quiet", at.Expr(at.ExternalCall("token", "contract Token", "transfer"))),
		),
	)
	withdraw := fnOf(t, g, "Vault", "withdraw")
	site := g.Callees(withdraw)
	require.Len(t, site, 1)

	path := g.CallbackPath(withdraw, site, 0)
	assert.Equal(t, []string{"Vault.withdraw -> Token.transfer", "Token.transfer -> Vault.credit"}, callgraph.FormatPath(path))

	assert.Nil(t, g.CallbackPath(withdraw, site, 1), "depth bound")
	assert.True(t, g.WritesState(fnOf(t, g, "Token", "transfer")))
	assert.Equal(t, 1, g.StateChanges(fnOf(t, g, "Vault", "credit")))

	reach := g.CalleesRecursive(withdraw, 5)
	require.Len(t, reach, 2)
	assert.Equal(t, "Token.transfer", reach[0].Key())
	assert.Equal(t, "Vault.credit", reach[1].Key())
}

func TestTreeMarksCyclesAndUnresolved(t *testing.T) {
	g := graphOf(t, at.Contract("A", nil,
		pub("loop", at.Expr(at.InternalCall("loop"))),
		pub("pay", at.Expr(at.LowLevelCall(at.MsgSender(), at.Lit("1")))),
	))
	tree := g.Tree(3)
	assert.Contains(t, tree, "- Entry: A.loop\n")
	assert.Contains(t, tree, "-> A.loop [internal] (Recursive Cycle)")
	assert.Contains(t, tree, "-> EXTERNAL:address.call [external, unknown]")

	sub := g.Subtree(fnOf(t, g, "A", "loop"), 2)
	assert.Contains(t, sub, "Function: A.loop\nCallees:\n")

	chains := g.CallChainsToEntry(fnOf(t, g, "A", "pay"))
	require.Len(t, chains, 1)
	assert.Equal(t, "A.pay", chains[0][0].Key())
}

func TestLibraryAndReferencedCalls(t *testing.T) {
	pay := at.Function("_pay", "internal", nil, at.Block())
	pay.ID = 42
	g := graphOf(t,
		at.Library("SafeMath", at.Function("add", "internal",
			[]at.Node{at.Param("a", "uint256"), at.Param("b", "uint256")}, at.Block())),
		at.Contract("Vault", nil,
			pay,
			pub("viaLibrary", at.Expr(at.Call(
				at.Member(at.Ident("SafeMath", "type(library SafeMath)"), "add", "function (uint256,uint256) pure returns (uint256)"),
				at.Lit("1"), at.Lit("2"),
			))),
			pub("viaRef", at.Expr(at.Call(at.Ref("_pay", "function ()", 42)))),
		),
	)

	tests := []struct {
		fn     string
		target string
	}{
		{"viaLibrary", "SafeMath.add"},
		{"viaRef", "Vault._pay"},
	}
	for _, tt := range tests {
		t.Run(tt.fn, func(t *testing.T) {
			f := fnOf(t, g, "Vault", tt.fn)
			edges := g.Callees(f)
			require.Len(t, edges, 1)
			assert.Equal(t, tt.target, edges[0].TargetID())
			assert.Equal(t, callgraph.KindInternal, edges[0].Kind)
			assert.False(t, edges[0].IsExternal())
			assert.Equal(t, 0, g.ExternalCalls(f))
		})
	}
}

func TestCallbackPathNamesExecutingContract(t *testing.T) {
	g := graphOf(t,
		at.Contract("Base", nil,
			at.StateVar("vault", "contract Vault"),
			at.Function("transfer", "external", nil, at.Block(at.Expr(at.ExternalCall("vault", "contract Vault", "credit")))),
		),
		at.Contract("Token", []string{"Base"}),
		at.Contract("Vault", nil,
			at.StateVar("token", "contract Token"),
			at.StateVar("balance", "uint256"),
			at.Function("credit", "external", nil, at.Block(at.Expr(at.SetVar("balance", "uint256", at.Lit("1"))))),
			pub("withdraw", at.Expr(at.ExternalCall("token", "contract Token", "transfer"))),
		),
	)
	withdraw := fnOf(t, g, "Vault", "withdraw")
	site := g.Callees(withdraw)
	require.Len(t, site, 1)
	assert.Equal(t, "Base.transfer", site[0].TargetID())
	assert.Equal(t, "Token", site[0].Receiver)

	path := g.CallbackPath(withdraw, site, 0)
	assert.Equal(t, []string{"Vault.withdraw -> Token.transfer", "Token.transfer -> Vault.credit"}, callgraph.FormatPath(path))
}

func TestNodeIDsResolvePerCompilation(t *testing.T) {
	withID := func(name string, id int) at.Node {
		f := at.Function(name, "internal", nil, at.Block())
		f.ID = id
		return f
	}
	sources := func() []*astparser.ParsedSource {
		return []*astparser.ParsedSource{
			at.Source("contracts/A.sol", at.Contract("A", nil,
				withID("f", 5),
				pub("run", at.Expr(at.Call(at.Ref("f", "function ()", 5)))),
			)),
			at.Source("contracts/B.sol", at.Contract("B", nil,
				withID("g", 5),
				pub("run", at.Expr(at.Call(at.Ref("g", "function ()", 5)))),
			)),
		}
	}

	tests := []struct {
		name    string
		origins [][]string
	}{
		{"separate build-infos", [][]string{{"build-info/a.json"}, {"build-info/b.json"}}},
		// the same id twice in one scope falls back to names
		{"clashing ids in one scope", [][]string{nil, nil}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srcs := sources()
			for i, o := range tt.origins {
				srcs[i].Origins = o
			}
			p, err := model.Build(srcs)
			require.NoError(t, err)
			g := callgraph.Build(p)
			assert.Empty(t, g.Diagnostics)

			for contract, want := range map[string]string{"A": "A.f", "B": "B.g"} {
				edges := g.Callees(fnOf(t, g, contract, "run"))
				require.Len(t, edges, 1)
				assert.Equal(t, want, edges[0].TargetID())
			}
		})
	}
}
