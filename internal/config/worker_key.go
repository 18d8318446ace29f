package config

type WorkerKeyStruct struct {
	RefreshStatsQueue string
}

var WorkerKey = &WorkerKeyStruct{
	RefreshStatsQueue: "refresh_stats_queue",
}
