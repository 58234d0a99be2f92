// Package conformer runs the variant expansion pipeline.
//
// A Pipeline owns an ordered set of stages. Every stage fans its work items
// out through a dispatcher, waits for all of them, prunes the variants of each
// container with the diversity selector and commits the survivors before the
// next stage starts. Once the last stage is done the surviving variants get
// their final identifiers and the containers left without any variant are
// reported as failures.
//
// Example:
//
//	cfg, err := config.LoadFile("params.yaml")
//	if err != nil {
//		return err
//	}
//	stages, err := conformer.StandardStages(cfg, engine)
//	if err != nil {
//		return err
//	}
//	pipe, err := conformer.New(cfg)
//	if err != nil {
//		return err
//	}
//	defer pipe.Close()
//	err = pipe.AddStages(stages...)
//	if err != nil {
//		return err
//	}
//	res, err := pipe.Run(ctx, records)
package conformer
