package containers

// Container types of derived artifacts.
const (
	ExtractionWarningType = "extraction_warning"
	AnalysisReportType    = "analysis_report"
)

// Configuration-like container types. They are known to the registry but
// are never given a table of their own.
const (
	AnalyzerResultType      = "analyzer_result"
	HostnameType            = "hostname"
	MountPointType          = "mount_point"
	OperatingSystemType     = "operating_system"
	PathType                = "path"
	SourceConfigurationType = "source_configuration"
)

// ExtractionWarning records a problem encountered while extracting events.
type ExtractionWarning struct {
	Base
	Message     string
	ParserChain string
	PathSpec    Object
}

// ExtractionWarningSchema is the schema of the extraction_warning container type.
var ExtractionWarningSchema = Schema{
	"message":      TypeString,
	"parser_chain": TypeString,
	"path_spec":    TypePathSpec,
}

func (w *ExtractionWarning) ContainerType() string { return ExtractionWarningType }

func (w *ExtractionWarning) AttributeNames() []string { return ExtractionWarningSchema.Names() }

func (w *ExtractionWarning) GetAttribute(name string) (Value, bool) {
	switch name {
	case "message":
		return optionalString(w.Message)
	case "parser_chain":
		return optionalString(w.ParserChain)
	case "path_spec":
		return optionalObject(w.PathSpec)
	}
	return nil, false
}

func (w *ExtractionWarning) SetAttribute(name string, v Value) error {
	switch name {
	case "message":
		return setString(&w.Message, ExtractionWarningType, name, v)
	case "parser_chain":
		return setString(&w.ParserChain, ExtractionWarningType, name, v)
	case "path_spec":
		return setObject(&w.PathSpec, ExtractionWarningType, name, v)
	}
	return unknownAttribute(ExtractionWarningType, name)
}

// AnalysisReport is the output of an analysis plugin. It has no schema.
type AnalysisReport struct {
	Base
	PluginName      string
	Text            string
	AnalysisCounter Object
	TimeCompiled    int64
}

func (r *AnalysisReport) ContainerType() string { return AnalysisReportType }

func (r *AnalysisReport) AttributeNames() []string {
	return []string{"analysis_counter", "plugin_name", "text", "time_compiled"}
}

func (r *AnalysisReport) GetAttribute(name string) (Value, bool) {
	switch name {
	case "analysis_counter":
		return optionalObject(r.AnalysisCounter)
	case "plugin_name":
		return optionalString(r.PluginName)
	case "text":
		return optionalString(r.Text)
	case "time_compiled":
		return Int(r.TimeCompiled), true
	}
	return nil, false
}

func (r *AnalysisReport) SetAttribute(name string, v Value) error {
	switch name {
	case "analysis_counter":
		return setObject(&r.AnalysisCounter, AnalysisReportType, name, v)
	case "plugin_name":
		return setString(&r.PluginName, AnalysisReportType, name, v)
	case "text":
		return setString(&r.Text, AnalysisReportType, name, v)
	case "time_compiled":
		return setInt(&r.TimeCompiled, AnalysisReportType, name, v)
	}
	return unknownAttribute(AnalysisReportType, name)
}

// Generic is a container with free-form attributes, used for
// configuration-like types that have no dedicated Go type.
type Generic struct {
	Base
	Type       string
	Attributes Object
}

// NewGeneric creates an empty generic container of the given type.
func NewGeneric(containerType string) *Generic {
	return &Generic{Type: containerType}
}

func (g *Generic) ContainerType() string { return g.Type }

func (g *Generic) AttributeNames() []string { return g.Attributes.SortedKeys() }

func (g *Generic) GetAttribute(name string) (Value, bool) {
	v, ok := g.Attributes[name]
	return v, ok
}

func (g *Generic) SetAttribute(name string, v Value) error {
	if IsReservedAttribute(name) {
		return attributeError(g.Type, name, ErrReservedAttribute)
	}
	if isNull(v) {
		delete(g.Attributes, name)
		return nil
	}
	if g.Attributes == nil {
		g.Attributes = make(Object)
	}
	g.Attributes[name] = v
	return nil
}
