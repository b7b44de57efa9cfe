package dashboard

// Record is a row of the mock data table.
type Record struct {
	ID         int
	Name       string
	Email      string
	Department string
	Role       string
	Status     string
}

// ImportBatch is a past spreadsheet import.
type ImportBatch struct {
	Name    string
	Records int
	Status  string
}

// Stat is a headline figure on the summary page.
type Stat struct {
	Label  string
	Value  string
	Change string
}

var sampleRecords = []Record{
	{ID: 1, Name: "John Doe", Email: "john.doe@example.com", Department: "Sales", Role: "Manager", Status: "active"},
	{ID: 2, Name: "Jane Smith", Email: "jane.smith@example.com", Department: "Marketing", Role: "Director", Status: "active"},
	{ID: 3, Name: "Bob Johnson", Email: "bob.johnson@example.com", Department: "IT", Role: "Developer", Status: "inactive"},
	{ID: 4, Name: "Alice Wilson", Email: "alice.wilson@example.com", Department: "HR", Role: "Specialist", Status: "active"},
	{ID: 5, Name: "Charlie Brown", Email: "charlie.brown@example.com", Department: "Finance", Role: "Analyst", Status: "pending"},
}

var sampleImports = []ImportBatch{
	{Name: "employees_q1.xlsx", Records: 1250, Status: "completed"},
	{Name: "sales_report.xlsx", Records: 840, Status: "completed"},
	{Name: "inventory.xlsx", Records: 0, Status: "failed"},
}

var sampleStats = []Stat{
	{Label: "Total Records", Value: "2,543", Change: "+12%"},
	{Label: "Active Users", Value: "128", Change: "+5%"},
	{Label: "Avg. Response Time", Value: "1.2s", Change: "-8%"},
	{Label: "Data Quality Score", Value: "98.5%", Change: "+2%"},
}

var samplePending = []string{
	"3 edited rows in Sales",
	"1 new record in HR",
	"Status change for Bob Johnson",
}

func findRecord(id int) (Record, bool) {
	for _, rec := range sampleRecords {
		if rec.ID == id {
			return rec, true
		}
	}
	return Record{}, false
}
