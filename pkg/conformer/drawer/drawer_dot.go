package drawer

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"text/template"
	"time"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"
	"gopkg.in/go-playground/colors.v1" //nolint

	"github.com/askiada/go-conformer/internal/stagestore"
	"github.com/askiada/go-conformer/pkg/conformer/measure"
)

const (
	labelAttr = "xlabel"
	maxRGB    = 240
)

// DOTDrawer draws the stage graph into a DOT file.
type DOTDrawer struct {
	store    *stagestore.MemoryStore[string, string]
	graph    graph.Graph[string, string]
	fileName string
}

// NewDOTDrawer creates a drawer writing to fileName.
func NewDOTDrawer(fileName string) *DOTDrawer {
	store := stagestore.New[string, string]()

	return &DOTDrawer{
		store:    store,
		graph:    graph.NewWithStore(graph.StringHash, graph.Store[string, string](store), graph.Directed(), graph.PreventCycles()),
		fileName: fileName,
	}
}

func (d *DOTDrawer) AddStage(name string) error {
	err := d.graph.AddVertex(name)
	if err != nil && !errors.Is(err, graph.ErrVertexAlreadyExists) {
		return errors.Wrapf(err, "unable to add stage %s", name)
	}

	return nil
}

func (d *DOTDrawer) AddLink(parent, child string) error {
	err := d.graph.AddEdge(parent, child)
	if err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
		return errors.Wrapf(err, "unable to add edge from %s to %s", parent, child)
	}

	return nil
}

func (d *DOTDrawer) SetTotalTime(name string, total time.Duration) error {
	err := d.store.Annotate(name, graph.VertexAttribute(labelAttr, total.String()))
	if err != nil {
		return errors.Wrap(err, "unable to set total time")
	}

	return nil
}

// AddMeasure labels every stage with its mean item time and colours the
// incoming edges from blue (fastest) to red (slowest).
func (d *DOTDrawer) AddMeasure(msr measure.Measure) error {
	metrics := msr.AllMetrics()

	var durations []time.Duration

	for _, mt := range metrics {
		if avg := mt.AVGDuration(); avg > 0 {
			durations = append(durations, avg)
		}
	}

	if len(durations) == 0 {
		return nil
	}

	minValue, maxValue := slices.Min(durations), slices.Max(durations)

	for name, mt := range metrics {
		avg := mt.AVGDuration()
		if avg == 0 {
			continue
		}

		label := fmt.Sprintf("avg: %s, items: %d, failed: %d, workers: %d", avg, mt.Items(), mt.Failed(), mt.Workers())
		if total := mt.GetTotalDuration(); total > 0 {
			label += ", total: " + total.String()
		}

		err := d.store.Annotate(name, graph.VertexAttribute(labelAttr, label))
		if err != nil {
			return errors.Wrap(err, "unable to label stage")
		}

		colour, err := gradient(avg, minValue, maxValue)
		if err != nil {
			return err
		}

		err = d.colourIncoming(name, colour, avg)
		if err != nil {
			return err
		}
	}

	return nil
}

func (d *DOTDrawer) colourIncoming(name, colour string, avg time.Duration) error {
	edges, err := d.store.ListEdges()
	if err != nil {
		return errors.Wrap(err, "unable to list edges")
	}

	for _, edge := range edges {
		if edge.Target != name {
			continue
		}

		err := d.graph.UpdateEdge(edge.Source, edge.Target,
			graph.EdgeAttribute("label", avg.String()),
			graph.EdgeAttribute("fontcolor", "blue"),
			graph.EdgeAttribute("color", colour),
		)
		if err != nil {
			return errors.Wrap(err, "unable to update edge")
		}
	}

	return nil
}

func gradient(curr, minValue, maxValue time.Duration) (string, error) {
	fraction := 1.0
	if maxValue > minValue {
		fraction = float64(curr-minValue) / float64(maxValue-minValue)
	}

	red := maxRGB * fraction
	blue := maxRGB - red

	colour, err := colors.RGB(uint8(red), 0, uint8(blue)) //nolint
	if err != nil {
		return "", errors.Wrap(err, "unable to get colour")
	}

	return colour.ToHEX().String(), nil
}

func (d *DOTDrawer) Draw() error {
	file, err := os.Create(d.fileName)
	if err != nil {
		return errors.Wrapf(err, "unable to create file %s", d.fileName)
	}
	defer file.Close()

	err = d.Render(file)
	if err != nil {
		return errors.Wrapf(err, "unable to create dot file %s", d.fileName)
	}

	return nil
}

func (d *DOTDrawer) Render(w io.Writer) error {
	desc, err := d.describe()
	if err != nil {
		return err
	}

	err = dotTemplate.Execute(w, desc)
	if err != nil {
		return errors.Wrap(err, "unable to execute template")
	}

	return nil
}

//nolint:lll //this is a template
var dotTemplate = template.Must(template.New("dot").Parse(`strict digraph {
{{- range $s := .Statements}}
	"{{.Source}}" {{if .Target}}-> "{{.Target}}" [ {{range $k, $v := .EdgeAttributes}}{{$k}}="{{$v}}", {{end}}weight={{.EdgeWeight}} ]{{else}}[ {{if .HTMLLabel}}label={{.HTMLLabel}}, {{end}}{{range $k, $v := .SourceAttributes}}{{$k}}="{{$v}}", {{end}}weight={{.SourceWeight}} ]{{end}};
{{- end}}
}
`))

type description struct {
	Statements []statement
}

type statement struct {
	Source           string
	Target           string
	HTMLLabel        string
	SourceAttributes map[string]string
	EdgeAttributes   map[string]string
	SourceWeight     int
	EdgeWeight       int
}

// describe lists vertices then edges, both in insertion order.
func (d *DOTDrawer) describe() (description, error) {
	var desc description

	vertices, err := d.store.ListVertices()
	if err != nil {
		return desc, errors.Wrap(err, "unable to list stages")
	}

	for _, vertex := range vertices {
		_, props, err := d.store.Vertex(vertex)
		if err != nil {
			return desc, errors.Wrap(err, "unable to get vertex properties")
		}

		stmt := statement{
			Source:           vertex,
			SourceWeight:     props.Weight,
			SourceAttributes: props.Attributes,
		}
		if xlabel, ok := props.Attributes[labelAttr]; ok {
			stmt.HTMLLabel = fmt.Sprintf(`<%s <BR /> <FONT POINT-SIZE="12">%s</FONT>>`, vertex, escape(xlabel))
			delete(props.Attributes, labelAttr)
		}
		desc.Statements = append(desc.Statements, stmt)
	}

	edges, err := d.store.ListEdges()
	if err != nil {
		return desc, errors.Wrap(err, "unable to list edges")
	}

	for _, edge := range edges {
		desc.Statements = append(desc.Statements, statement{
			Source:         edge.Source,
			Target:         edge.Target,
			EdgeWeight:     edge.Properties.Weight,
			EdgeAttributes: edge.Properties.Attributes,
		})
	}

	return desc, nil
}

func escape(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(s)
}

var _ Drawer = (*DOTDrawer)(nil)
