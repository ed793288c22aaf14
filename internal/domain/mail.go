package domain

type MailMessage struct {
	Type string `json:"type"`
	To   string `json:"to"`
	Data any    `json:"data"`
}

type RunFinishedMailData struct {
	RunID       string `json:"runID"`
	Status      string `json:"status"`
	Generation  int    `json:"generation"`
	BestFitness int    `json:"bestFitness"`
	Table       string `json:"table"`
}
