package extractor

// Parameter is one formal parameter of a method or constructor.
type Parameter struct {
	Type string `json:"type" yaml:"type"`
	Name string `json:"name" yaml:"name"`
}

// MethodInfo describes a method or constructor declaration.
type MethodInfo struct {
	Name          string      `json:"name" yaml:"name"`
	IsConstructor bool        `json:"is_constructor" yaml:"is_constructor"`
	ReturnType    string      `json:"return_type" yaml:"return_type"`
	Modifiers     []string    `json:"modifiers" yaml:"modifiers"`
	Annotations   []string    `json:"annotations" yaml:"annotations"`
	Parameters    []Parameter `json:"parameters" yaml:"parameters"`

	// CalledFunctions is the set of invoked method names, sorted.
	CalledFunctions []string `json:"called_functions" yaml:"called_functions"`

	Comments     string `json:"comments" yaml:"comments"`
	OriginalCode string `json:"original_code" yaml:"original_code"`
}

// ClassInfo describes a class declaration and everything nested in it.
type ClassInfo struct {
	Name         string       `json:"name" yaml:"name"`
	Modifiers    []string     `json:"modifiers" yaml:"modifiers"`
	Annotations  []string     `json:"annotations" yaml:"annotations"`
	Extends      []string     `json:"extends" yaml:"extends"`
	Implements   []string     `json:"implements" yaml:"implements"`
	Comments     string       `json:"comments" yaml:"comments"`
	Methods      []MethodInfo `json:"methods" yaml:"methods"`
	InnerClasses []ClassInfo  `json:"inner_classes" yaml:"inner_classes"`
	OriginalCode string       `json:"original_code" yaml:"original_code"`
}

// AnalysisResult holds the top-level classes of one source unit. Nested
// classes only appear inside their parent's InnerClasses.
type AnalysisResult struct {
	Classes []ClassInfo `json:"classes" yaml:"classes"`
}

// NewAnalysisResult returns an empty result.
func NewAnalysisResult() *AnalysisResult {
	return &AnalysisResult{Classes: []ClassInfo{}}
}

// Walk calls fn for every class in the result, parents before children.
// path holds the names of the enclosing classes, outermost first.
func (r *AnalysisResult) Walk(fn func(path []string, class *ClassInfo)) {
	var visit func(path []string, classes []ClassInfo)
	visit = func(path []string, classes []ClassInfo) {
		for i := range classes {
			c := &classes[i]
			fn(path, c)
			visit(append(append([]string(nil), path...), c.Name), c.InnerClasses)
		}
	}
	visit(nil, r.Classes)
}

// ClassCount returns the number of classes at every nesting level.
func (r *AnalysisResult) ClassCount() int {
	n := 0
	r.Walk(func([]string, *ClassInfo) { n++ })
	return n
}

// MethodCount returns the number of methods and constructors in all classes.
func (r *AnalysisResult) MethodCount() int {
	n := 0
	r.Walk(func(_ []string, c *ClassInfo) { n += len(c.Methods) })
	return n
}
