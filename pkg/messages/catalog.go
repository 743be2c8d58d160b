// pkg/messages/catalog.go
package messages

// Prompt is the first ask and the re-ask of one step.
type Prompt struct {
	Ask   string `yaml:"ask"`
	Retry string `yaml:"retry"`
}

// Labels are the fact titles of the confirmation summary card.
type Labels struct {
	Title         string `yaml:"title"`
	Business      string `yaml:"business"`
	Service       string `yaml:"service"`
	StartTime     string `yaml:"start_time"`
	EndTime       string `yaml:"end_time"`
	CustomerName  string `yaml:"customer_name"`
	CustomerEmail string `yaml:"customer_email"`
}

// Email is the confirmation mail template, rendered with text/template.
type Email struct {
	Subject string `yaml:"subject"`
	Body    string `yaml:"body"`
}

// Catalog holds every user-visible string.
type Catalog struct {
	Hello    string `yaml:"hello"`
	Cancel   string `yaml:"cancel"`
	Complete string `yaml:"complete"`
	Apology  string `yaml:"apology"`

	Business      Prompt `yaml:"business"`
	Service       Prompt `yaml:"service"`
	Date          Prompt `yaml:"date"`
	Time          Prompt `yaml:"time"`
	StaffMember   Prompt `yaml:"staff_member"`
	CustomerName  Prompt `yaml:"customer_name"`
	CustomerEmail Prompt `yaml:"customer_email"`
	Confirm       Prompt `yaml:"confirm"`

	Card  Labels `yaml:"card"`
	Email Email  `yaml:"email"`
}

// Default is the built-in English catalogue.
func Default() *Catalog {
	return &Catalog{
		Hello:    "Hello! I can book an appointment for you. Type \"cancel\" at any time to stop.",
		Cancel:   "Your booking has been cancelled.",
		Complete: "Your appointment is booked. See you soon!",
		Apology:  "Sorry, something went wrong. Please send any message to start over.",

		Business:      Prompt{Ask: "Which business would you like to book with?", Retry: "Please choose one of the listed businesses."},
		Service:       Prompt{Ask: "Which service would you like?", Retry: "Please choose one of the listed services."},
		Date:          Prompt{Ask: "Which date works for you?", Retry: "That date has no free times. Please choose another date."},
		Time:          Prompt{Ask: "Which time works for you?", Retry: "Please choose one of the listed times."},
		StaffMember:   Prompt{Ask: "Who would you like to see?", Retry: "Please choose one of the listed staff members."},
		CustomerName:  Prompt{Ask: "What is your name?", Retry: "Please enter your name."},
		CustomerEmail: Prompt{Ask: "What is your email address?", Retry: "Please enter a valid email address."},
		Confirm:       Prompt{Ask: "Shall I book this appointment?", Retry: "Please answer yes or no."},

		Card: Labels{
			Title:         "Your booking",
			Business:      "Business",
			Service:       "Service",
			StartTime:     "Start",
			EndTime:       "End",
			CustomerName:  "Name",
			CustomerEmail: "Email",
		},
		Email: Email{
			Subject: "Your appointment with {{.BusinessName}}",
			Body: "Hello {{.CustomerName}},\n\n" +
				"Your {{.ServiceName}} appointment with {{.BusinessName}} is confirmed.\n" +
				"Start: {{.Start}}\nEnd: {{.End}}\n",
		},
	}
}
