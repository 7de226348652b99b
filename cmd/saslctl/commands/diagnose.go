package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AtelierNeon/gosasl/pkg/sasl"
)

var (
	diagnoseOffered   string
	diagnosePreferred string
	diagnoseUsername  string
	diagnosePassword  string
	diagnoseOAuth     oauthFlags
)

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose",
	Short: "Explain why each offered mechanism would or would not be chosen",
	RunE:  runDiagnose,
}

func init() {
	diagnoseCmd.Flags().StringVar(&diagnoseOffered, "offered", "", "Comma-separated mechanisms the server offered (required)")
	diagnoseCmd.Flags().StringVar(&diagnosePreferred, "preferred", "*", `Comma-separated preferred mechanisms, or "*" for all offered`)
	diagnoseCmd.Flags().StringVar(&diagnoseUsername, "username", "", "Username credential")
	diagnoseCmd.Flags().StringVar(&diagnosePassword, "password", "", "Password credential")
	registerOAuthFlags(&diagnoseOAuth, diagnoseCmd.Flags().StringVar)
	_ = diagnoseCmd.MarkFlagRequired("offered")
}

func runDiagnose(cmd *cobra.Command, args []string) error {
	offered := parseMechList(diagnoseOffered)
	if offered == sasl.MechNone {
		return fmt.Errorf("saslctl: --offered did not contain any recognized mechanism")
	}

	bearerToken, err := resolveBearerToken(cmd.Context(), diagnoseOAuth)
	if err != nil {
		return err
	}

	params := &sasl.CarrierParams{
		DefMechs:  parsePreferred(diagnosePreferred, offered),
		ContCode:  1,
		FinalCode: 2,
		Flags:     sasl.FlagBase64,
	}
	caps := fullCapabilities()
	sess := sasl.NewSession(params, caps)
	sess.SetAuthMechs(offered)

	creds := sasl.Credentials{
		Username:    diagnoseUsername,
		Password:    diagnosePassword,
		BearerToken: bearerToken,
	}

	lines := sasl.Diagnose(sess, creds, caps)
	if len(lines) == 0 {
		cmd.Println("no diagnostics: a mechanism would be chosen")
		return nil
	}
	for _, line := range lines {
		cmd.Println(line)
	}
	return nil
}
