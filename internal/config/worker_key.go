package config

type WorkerKeyStruct struct {
	PersistResponsesQueue   string
	PersistInfractionsQueue string
}

var WorkerKey = &WorkerKeyStruct{
	PersistResponsesQueue:   "persist_responses_queue",
	PersistInfractionsQueue: "persist_infractions_queue",
}
