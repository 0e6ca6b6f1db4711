package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newContactsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "contacts",
		Aliases: []string{"ct"},
		Short:   "联系人管理（联系人页签）",
	}
	cmd.AddCommand(newContactsListCmd())
	cmd.AddCommand(newContactsAddCmd())
	cmd.AddCommand(newContactsRemoveCmd())
	return cmd
}

func newContactsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "列出所有联系人",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := LoadConfig(cmd)
			client := newClient(cfg)

			contacts, err := client.ListContacts(cmd.Context())
			if err != nil {
				return err
			}
			if cfg.Output == "json" {
				return printJSON(contacts)
			}
			renderContacts(contacts)
			return nil
		},
	}
}

func newContactsAddCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "add",
		Short: "新增联系人",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := LoadConfig(cmd)
			client := newClient(cfg)

			resp, err := client.AddContact(cmd.Context(), mustGetString(cmd, "name"), mustGetString(cmd, "email"))
			if err != nil {
				return err
			}
			fmt.Println(resp.Message)

			// 变更后立即重新拉取，保持缓存与服务端一致
			contacts, err := client.ListContacts(cmd.Context())
			if err != nil {
				return err
			}
			if cfg.Output == "json" {
				return printJSON(contacts)
			}
			renderContacts(contacts)
			return nil
		},
	}
	c.Flags().String("name", "", "显示名（必选）")
	c.Flags().String("email", "", "邮箱（必选）")
	_ = c.MarkFlagRequired("name")
	_ = c.MarkFlagRequired("email")
	return c
}

func newContactsRemoveCmd() *cobra.Command {
	c := &cobra.Command{
		Use:     "remove",
		Aliases: []string{"rm", "delete"},
		Short:   "按邮箱删除联系人",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := LoadConfig(cmd)
			client := newClient(cfg)

			resp, err := client.DeleteContact(cmd.Context(), mustGetString(cmd, "email"))
			if err != nil {
				return err
			}
			fmt.Println(resp.Message)

			contacts, err := client.ListContacts(cmd.Context())
			if err != nil {
				return err
			}
			if cfg.Output == "json" {
				return printJSON(contacts)
			}
			renderContacts(contacts)
			return nil
		},
	}
	c.Flags().String("email", "", "邮箱（必选）")
	_ = c.MarkFlagRequired("email")
	return c
}
