package activities

import "go.temporal.io/sdk/worker"

func Register(w worker.Worker, a *Activities) {
	w.RegisterActivity(a.UpdateRunStatusActivity)
	w.RegisterActivity(a.ClearIndexActivity)
	w.RegisterActivity(a.SplitSentencesActivity)
	w.RegisterActivity(a.ExtractKeywordsActivity)
	w.RegisterActivity(a.SetRunKeywordsActivity)
	w.RegisterActivity(a.DiscoverPapersActivity)
	w.RegisterActivity(a.ProcessPaperActivity)
	w.RegisterActivity(a.IndexPaperActivity)
	w.RegisterActivity(a.Layer1ScoreActivity)
	w.RegisterActivity(a.RealityCheckActivity)
	w.RegisterActivity(a.AggregateActivity)
	w.RegisterActivity(a.SaveResultActivity)
	w.RegisterActivity(a.LogOracleCallActivity)
}
