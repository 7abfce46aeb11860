package dashboard

// HeaderTitle is shown in the page header and the document title.
const HeaderTitle = "Agent Console"

// Route identifies the page being rendered.
type Route struct {
	Path string
}

// MenuItem is one side-menu entry.
type MenuItem struct {
	Path     string
	Label    string
	Icon     string
	Selected bool
}

// Shell is the header and navigation wrapped around every page.
type Shell struct {
	Title string
	Items []MenuItem
}

var menu = []MenuItem{
	{Path: "/", Label: "Overview", Icon: "dashboard"},
	{Path: "/agents", Label: "Agents", Icon: "cloud-server"},
	{Path: "/tasks", Label: "Tasks", Icon: "file-text"},
	{Path: "/metrics", Label: "Metrics", Icon: "bar-chart"},
}

// Menu returns the navigation entries in display order.
func Menu() []MenuItem {
	items := make([]MenuItem, len(menu))
	copy(items, menu)
	return items
}

// NewShell builds the shell for route. An entry is selected only when its
// path equals the route path exactly.
func NewShell(route Route, title string) Shell {
	items := Menu()
	for i := range items {
		items[i].Selected = items[i].Path == route.Path
	}
	return Shell{Title: title, Items: items}
}

// Page is the data passed to the layout template.
type Page struct {
	Title string
	Shell Shell
	Error string
	Data  any
}

func newPage(route Route, title string, data any) Page {
	return Page{Title: title, Shell: NewShell(route, HeaderTitle), Data: data}
}
