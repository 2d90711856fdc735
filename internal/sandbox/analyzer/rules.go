package analyzer

import "regexp"

// Category groups rules for reporting and tests
type Category string

const (
	CategoryModuleAccess   Category = "module_access"
	CategoryGlobalAccess   Category = "global_access"
	CategoryDynamicCode    Category = "dynamic_code"
	CategoryPrototype      Category = "prototype"
	CategoryReflection     Category = "reflection"
	CategoryConstructorEsc Category = "constructor_escape"
)

// Rule is one forbidden construct
type Rule struct {
	Name     string
	Category Category
	Pattern  *regexp.Regexp
	Message  string
}

// DefaultRules is the ordered rule table. Order is the reporting order.
var DefaultRules = []Rule{
	// Module and process access
	{"require", CategoryModuleAccess, regexp.MustCompile(`\brequire\s*\(`), "require() is not allowed"},
	{"dynamic_import", CategoryModuleAccess, regexp.MustCompile(`\bimport\s*\(`), "dynamic import() is not allowed"},
	{"static_import", CategoryModuleAccess, regexp.MustCompile(`(?m)^\s*import\s+[\w{*'"]`), "import statements are not allowed"},
	{"process", CategoryModuleAccess, regexp.MustCompile(`\bprocess\s*(\.|\[)`), "access to process is not allowed"},
	{"child_process", CategoryModuleAccess, regexp.MustCompile(`\bchild_process\b`), "child_process is not allowed"},
	{"filesystem", CategoryModuleAccess, regexp.MustCompile(`\bfs\s*\.\s*\w+|['"](node:)?fs(/promises)?['"]`), "filesystem access is not allowed"},
	{"dirname", CategoryModuleAccess, regexp.MustCompile(`\b__dirname\b`), "__dirname is not allowed"},
	{"filename", CategoryModuleAccess, regexp.MustCompile(`\b__filename\b`), "__filename is not allowed"},

	// Global object access
	{"global", CategoryGlobalAccess, regexp.MustCompile(`\bglobal\s*(\.|\[)`), "access to global is not allowed"},
	{"global_this", CategoryGlobalAccess, regexp.MustCompile(`\bglobalThis\b`), "access to globalThis is not allowed"},

	// Dynamic code execution
	{"eval", CategoryDynamicCode, regexp.MustCompile(`\beval\s*\(`), "eval() is not allowed"},
	{"function_constructor", CategoryDynamicCode, regexp.MustCompile(`\bFunction\s*\(`), "Function constructor is not allowed"},
	{"generator_function", CategoryDynamicCode, regexp.MustCompile(`\b(Async)?GeneratorFunction\b`), "generator function constructors are not allowed"},
	{"async_function", CategoryDynamicCode, regexp.MustCompile(`\bAsyncFunction\b`), "AsyncFunction constructor is not allowed"},

	// Prototype manipulation
	{"proto_assignment", CategoryPrototype, regexp.MustCompile(`__proto__['"\]]*\s*=([^=]|$)`), "__proto__ assignment is not allowed"},
	{"set_prototype_of", CategoryPrototype, regexp.MustCompile(`\bObject\s*\.\s*setPrototypeOf\b`), "Object.setPrototypeOf is not allowed"},
	{"define_property", CategoryPrototype, regexp.MustCompile(`\bObject\s*\.\s*(defineProperty|defineProperties)\b`), "Object.defineProperty is not allowed"},

	// Reflection and meta-programming
	{"reflect", CategoryReflection, regexp.MustCompile(`\bReflect\s*\.\s*(construct|apply)\b`), "Reflect.construct/apply is not allowed"},
	{"proxy", CategoryReflection, regexp.MustCompile(`\bnew\s+Proxy\b`), "Proxy is not allowed"},
	{"symbol_for", CategoryReflection, regexp.MustCompile(`\bSymbol\s*\.\s*for\b`), "Symbol.for is not allowed"},

	// Constructor chain escape
	{"constructor_chain", CategoryConstructorEsc, regexp.MustCompile(`\.\s*constructor\s*\.\s*constructor\b|\[\s*['"]constructor['"]\s*\]\s*\[\s*['"]constructor['"]\s*\]`), "constructor chain access is not allowed"},
}
