package viz

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/papertrail/papertrail/internal/similarity"
)

// Templates are parsed at init time to fail fast on template errors.
var (
	compiledTemplate = template.Must(template.New("viz").Parse(htmlTemplate))
	emptyTemplate    = template.Must(template.New("empty").Parse(emptyHTMLTemplate))
)

// HTMLOptions configures HTML generation.
type HTMLOptions struct {
	Layout string // "force", "circle", or "grid"
	Title  string // page heading, usually the project name
}

// DefaultOptions returns default HTML generation options.
func DefaultOptions() HTMLOptions {
	return HTMLOptions{Layout: "force"}
}

// ValidLayouts lists the supported layout algorithm names.
var ValidLayouts = []string{"force", "circle", "grid"}

// cytoscapeCDN is the script tag loading Cytoscape.js.
const cytoscapeCDN = `<script src="https://unpkg.com/cytoscape@3/dist/cytoscape.min.js"></script>`

// GenerateHTML renders a self-contained HTML page for the graph. Graphs
// without papers or without surviving links render distinct empty pages.
func GenerateHTML(g *similarity.Graph, opts HTMLOptions) (string, error) {
	if g == nil {
		return "", fmt.Errorf("graph cannot be nil")
	}
	if err := validateLayout(opts.Layout); err != nil {
		return "", err
	}

	header := headerData{
		Title:    opts.Title,
		Metric:   string(g.Metric),
		MinScore: g.MinScore,
	}
	if header.Title == "" {
		header.Title = "Paper similarity"
	}

	var buf bytes.Buffer
	if state := g.State(); state != similarity.StateReady {
		err := emptyTemplate.Execute(&buf, emptyData{headerData: header, State: string(state), Message: state.Message()})
		if err != nil {
			return "", err
		}
		return buf.String(), nil
	}

	graphJSON, err := FromGraph(g).JSON()
	if err != nil {
		return "", err
	}

	data := templateData{
		headerData: header,
		ScriptTag:  template.HTML(cytoscapeCDN),
		GraphJSON:  template.JS(graphJSON),
		Layout:     layoutToCytoscape(opts.Layout),
		Nodes:      len(g.Nodes),
		Edges:      len(g.Edges),
	}
	if err := compiledTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// validateLayout checks if the layout option is valid.
func validateLayout(layout string) error {
	switch layout {
	case "", "force", "circle", "grid":
		return nil
	default:
		return fmt.Errorf("invalid layout %q: must be force, circle, or grid", layout)
	}
}

type headerData struct {
	Title    string
	Metric   string
	MinScore float64
}

// templateData holds data for the HTML template.
type templateData struct {
	headerData
	ScriptTag template.HTML
	GraphJSON template.JS
	Layout    string
	Nodes     int
	Edges     int
}

type emptyData struct {
	headerData
	State   string
	Message string
}

// layoutToCytoscape converts user-friendly layout names to Cytoscape.js layout algorithm names.
func layoutToCytoscape(layout string) string {
	switch layout {
	case "circle":
		return "circle"
	case "grid":
		return "grid"
	default:
		return "cose"
	}
}

const emptyHTMLTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Title}} - {{.Message}}</title>
  <style>
    body {
      font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif;
      display: flex;
      justify-content: center;
      align-items: center;
      height: 100vh;
      margin: 0;
      background: #f5f5f5;
    }
    .empty-state {
      text-align: center;
      color: #666;
    }
    .empty-state h2 {
      margin-bottom: 0.5em;
      color: #333;
    }
    .empty-state code {
      background: #e0e0e0;
      padding: 2px 6px;
      border-radius: 3px;
    }
  </style>
</head>
<body>
  <div class="empty-state" data-state="{{.State}}">
    <h2>{{.Message}}</h2>
    {{if eq .State "no_papers"}}
    <p>Add papers using <code>pt paper add</code></p>
    {{else}}
    <p>Metric <code>{{.Metric}}</code>, minimum score <code>{{printf "%.2f" .MinScore}}</code>.</p>
    <p>Lower the threshold with <code>pt graph --min-score</code> or pick another <code>--metric</code>.</p>
    {{end}}
  </div>
</body>
</html>`

const htmlTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
  {{.ScriptTag}}
  <style>
    * {
      box-sizing: border-box;
    }
    body {
      font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif;
      margin: 0;
      padding: 0;
      background: #f5f5f5;
    }
    header {
      padding: 8px 16px;
      background: white;
      border-bottom: 1px solid #ddd;
      font-size: 13px;
      color: #555;
    }
    header h1 {
      display: inline;
      font-size: 15px;
      color: #222;
      margin-right: 12px;
    }
    #cy {
      width: 100%;
      height: calc(100vh - 40px);
      background: white;
    }
    #tooltip {
      position: absolute;
      display: none;
      background: white;
      border: 1px solid #ccc;
      border-radius: 4px;
      padding: 8px 12px;
      box-shadow: 0 2px 8px rgba(0,0,0,0.15);
      max-width: 360px;
      font-size: 13px;
      z-index: 1000;
      pointer-events: none;
    }
    #tooltip .label {
      font-weight: bold;
      margin-bottom: 4px;
    }
    #tooltip .detail {
      color: #555;
      margin: 2px 0;
    }
    #tooltip .abstract {
      font-style: italic;
      color: #666;
      margin-top: 4px;
    }
  </style>
</head>
<body>
  <header>
    <h1>{{.Title}}</h1>
    {{.Nodes}} papers, {{.Edges}} links, metric <b>{{.Metric}}</b> &ge; {{printf "%.2f" .MinScore}}
  </header>
  <div id="cy"></div>
  <div id="tooltip"></div>
  <script>
    (function() {
      const graphData = {{.GraphJSON}};
      const layout = "{{.Layout}}";

      const cy = cytoscape({
        container: document.getElementById('cy'),
        elements: graphData,
        style: [
          {
            selector: 'node',
            style: {
              'label': 'data(label)',
              'background-color': '#4a90d9',
              'width': 'mapData(degree, 0, 10, 20, 50)',
              'height': 'mapData(degree, 0, 10, 20, 50)',
              'font-size': '10px',
              'text-valign': 'bottom',
              'text-margin-y': 4,
              'color': '#333'
            }
          },
          {
            selector: 'edge',
            style: {
              'line-color': '#999',
              'width': 'data(width)',
              'opacity': 'mapData(value, 0, 1, 0.3, 1)',
              'curve-style': 'bezier'
            }
          },
          {
            selector: 'node.highlighted',
            style: {
              'border-width': 3,
              'border-color': '#ff6b6b'
            }
          },
          {
            selector: '.dimmed',
            style: {
              'opacity': 0.2
            }
          }
        ],
        layout: {
          name: layout,
          animate: false,
          nodeRepulsion: 8000,
          idealEdgeLength: function(edge) { return 200 * (1 - edge.data('value')) + 40; }
        }
      });

      const tooltip = document.getElementById('tooltip');

      function showTooltip(evt, content) {
        tooltip.innerHTML = content;
        tooltip.style.display = 'block';
        const pos = evt.renderedPosition || evt.position;
        tooltip.style.left = (pos.x + 15) + 'px';
        tooltip.style.top = (pos.y + 55) + 'px';
      }

      function hideTooltip() {
        tooltip.style.display = 'none';
      }

      function escapeHtml(str) {
        if (!str) return '';
        return String(str).replace(/&/g, '&amp;')
                  .replace(/</g, '&lt;')
                  .replace(/>/g, '&gt;')
                  .replace(/"/g, '&quot;');
      }

      function getNodeTooltip(node) {
        const data = node.data();
        let html = '<div class="label">' + escapeHtml(data.title) + '</div>';
        if (data.authors) html += '<div class="detail">' + escapeHtml(data.authors) + '</div>';
        html += '<div class="detail">Links: ' + data.degree + '</div>';
        if (data.abstract) {
          const short = data.abstract.length > 280 ? data.abstract.slice(0, 280) + '…' : data.abstract;
          html += '<div class="abstract">' + escapeHtml(short) + '</div>';
        }
        return html;
      }

      function getEdgeTooltip(edge) {
        const data = edge.data();
        const title = function(id) { return cy.getElementById(id).data('title') || id; };
        let html = '<div class="label">' + escapeHtml(title(data.source)) + ' ↔ ' + escapeHtml(title(data.target)) + '</div>';
        html += '<div class="detail">Score: ' + data.value.toFixed(3) + '</div>';
        return html;
      }

      cy.on('mouseover', 'node', function(evt) {
        showTooltip(evt, getNodeTooltip(evt.target));
      });
      cy.on('mouseout', 'node', hideTooltip);
      cy.on('mouseover', 'edge', function(evt) {
        showTooltip(evt, getEdgeTooltip(evt.target));
      });
      cy.on('mouseout', 'edge', hideTooltip);

      // Click a paper to focus on its neighbours
      cy.on('tap', 'node', function(evt) {
        const neighborhood = evt.target.closedNeighborhood();
        cy.elements().removeClass('highlighted dimmed');
        neighborhood.nodes().addClass('highlighted');
        cy.elements().not(neighborhood).addClass('dimmed');
      });

      cy.on('tap', function(evt) {
        if (evt.target === cy) {
          cy.elements().removeClass('highlighted dimmed');
        }
      });
    })();
  </script>
</body>
</html>`
